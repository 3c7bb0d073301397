package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
)

// RunVerifyAudit recomputes the hash chain of one stream, or of every stream when
// streamKey is empty, and fails when any chain is broken.
func RunVerifyAudit(
	ctx context.Context,
	audit auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	streamKey, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var results []*auditDomain.VerifyResult
	if streamKey != "" {
		result, err := audit.Verify(ctx, streamKey)
		if err != nil {
			return fmt.Errorf("failed to verify audit stream: %w", err)
		}
		results = append(results, result)
	} else {
		var err error
		results, err = audit.VerifyAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify audit streams: %w", err)
		}
	}

	broken := 0
	for _, r := range results {
		if !r.OK {
			broken++
		}
	}
	logger.Info("audit verification completed",
		slog.Int("streams", len(results)),
		slog.Int("broken", broken),
	)

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"streams": results,
			"passed":  broken == 0,
		}); err != nil {
			return err
		}
	} else {
		outputVerifyText(writer, results, broken)
	}

	if broken > 0 {
		return fmt.Errorf("integrity check failed: %d broken stream(s)", broken)
	}
	return nil
}

func outputVerifyText(writer io.Writer, results []*auditDomain.VerifyResult, broken int) {
	_, _ = fmt.Fprintf(writer, "Audit Ledger Verification\n")
	_, _ = fmt.Fprintf(writer, "=========================\n\n")

	if len(results) == 0 {
		_, _ = fmt.Fprintf(writer, "Status: No audit streams found\n")
		return
	}

	for _, r := range results {
		if r.OK {
			_, _ = fmt.Fprintf(writer, "  ok      %-40s %d event(s)\n", r.StreamKey, r.Checked)
			continue
		}
		seq := "-"
		if r.FirstBadSeq != nil {
			seq = fmt.Sprintf("%d", *r.FirstBadSeq)
		}
		_, _ = fmt.Fprintf(writer, "  BROKEN  %-40s first bad seq %s: %s\n", r.StreamKey, seq, r.Reason)
	}
	_, _ = fmt.Fprintln(writer)

	if broken > 0 {
		_, _ = fmt.Fprintf(writer, "Status: FAILED (%d of %d stream(s) broken)\n", broken, len(results))
		return
	}
	_, _ = fmt.Fprintf(writer, "Status: PASSED (%d stream(s))\n", len(results))
}
