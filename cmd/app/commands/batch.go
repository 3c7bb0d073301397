package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	documentUseCase "github.com/allisson/docvault/internal/documents/usecase"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
	scanUseCase "github.com/allisson/docvault/internal/scan/usecase"
)

// RotateOptions configures rotate-doc-keys.
type RotateOptions struct {
	FromKeyID string
	ToKeyID   string
	Limit     int
	// Once stops after a single pass instead of draining the retiring key.
	Once   bool
	Format string
}

// RunRotateDocKeys re-wraps document data keys from opts.FromKeyID. Passes continue past
// the last document of the previous pass until one selects nothing, so documents that
// failed are reported rather than retried forever.
func RunRotateDocKeys(
	ctx context.Context,
	rotationUseCase documentUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	opts RotateOptions,
) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	total := documentDomain.RotateResult{FromKeyID: opts.FromKeyID, ToKeyID: opts.ToKeyID}
	input := documentDomain.RotateInput{FromKeyID: opts.FromKeyID, ToKeyID: opts.ToKeyID, Limit: opts.Limit}
	passes := 0
	for {
		result, err := rotationUseCase.RotateDocKeys(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to rotate document keys: %w", err)
		}
		passes++
		total.ToKeyID = result.ToKeyID
		total.Rotated += result.Rotated
		total.Failed += result.Failed
		total.Conflicts += result.Conflicts
		total.LastID = result.LastID

		logger.Info("rotation pass completed",
			slog.Int("pass", passes),
			slog.Int("rotated", result.Rotated),
			slog.Int("failed", result.Failed),
			slog.Int("conflicts", result.Conflicts),
		)

		if opts.Once || result.Selected() == 0 {
			break
		}
		input.AfterID = result.LastID
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(writer, map[string]any{
			"from_key_id": total.FromKeyID,
			"to_key_id":   total.ToKeyID,
			"rotated":     total.Rotated,
			"failed":      total.Failed,
			"conflicts":   total.Conflicts,
			"passes":      passes,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Rotated %s -> %s in %d pass(es)\n", total.FromKeyID, total.ToKeyID, passes)
		_, _ = fmt.Fprintf(writer, "Rotated:   %d\n", total.Rotated)
		_, _ = fmt.Fprintf(writer, "Failed:    %d\n", total.Failed)
		_, _ = fmt.Fprintf(writer, "Conflicts: %d\n", total.Conflicts)
	}

	if total.Failed > 0 {
		return fmt.Errorf("%d document(s) failed to rotate", total.Failed)
	}
	return nil
}

// MigrateOptions configures migrate-legacy.
type MigrateOptions struct {
	Limit    int
	DryRun   bool
	MaxBytes int64
	// AfterID resumes behind a document id reported by an earlier run.
	AfterID uuid.UUID
	// Once stops after a single pass instead of walking every legacy document.
	Once   bool
	Format string
}

// RunMigrateLegacy encrypts legacy documents pass by pass. Each pass starts behind the last
// document of the previous one, so oversized and failed documents that stay legacy do not
// hide the rest of the table.
func RunMigrateLegacy(
	ctx context.Context,
	migrationUseCase documentUseCase.MigrationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	opts MigrateOptions,
) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	total := documentDomain.MigrateResult{DryRun: opts.DryRun, LastID: opts.AfterID}
	input := documentDomain.MigrateInput{
		Limit:    opts.Limit,
		DryRun:   opts.DryRun,
		MaxBytes: opts.MaxBytes,
		AfterID:  opts.AfterID,
	}
	passes := 0
	for {
		result, err := migrationUseCase.MigrateLegacyBatch(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to migrate legacy documents: %w", err)
		}
		passes++
		total.Scanned += result.Scanned
		total.Migrated += result.Migrated
		total.Skipped += result.Skipped
		total.Failed += result.Failed
		total.LastID = result.LastID

		logger.Info("legacy migration pass completed",
			slog.Int("pass", passes),
			slog.Int("scanned", result.Scanned),
			slog.Int("migrated", result.Migrated),
			slog.Int("skipped", result.Skipped),
			slog.Int("failed", result.Failed),
			slog.Bool("dry_run", result.DryRun),
		)

		if opts.Once || result.Scanned == 0 {
			break
		}
		input.AfterID = result.LastID
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(writer, map[string]any{
			"scanned":  total.Scanned,
			"migrated": total.Migrated,
			"skipped":  total.Skipped,
			"failed":   total.Failed,
			"dry_run":  total.DryRun,
			"last_id":  total.LastID,
			"passes":   passes,
		}); err != nil {
			return err
		}
	} else {
		if total.DryRun {
			_, _ = fmt.Fprintln(writer, "Dry run: nothing was written")
		}
		_, _ = fmt.Fprintf(writer, "Passes:   %d\n", passes)
		_, _ = fmt.Fprintf(writer, "Scanned:  %d\n", total.Scanned)
		_, _ = fmt.Fprintf(writer, "Migrated: %d\n", total.Migrated)
		_, _ = fmt.Fprintf(writer, "Skipped:  %d\n", total.Skipped)
		_, _ = fmt.Fprintf(writer, "Failed:   %d\n", total.Failed)
		_, _ = fmt.Fprintf(writer, "Last ID:  %s\n", total.LastID)
	}

	if total.Failed > 0 {
		return fmt.Errorf("%d legacy document(s) failed to migrate", total.Failed)
	}
	return nil
}

// RunScanHeal runs one scan queue heal pass.
func RunScanHeal(
	ctx context.Context,
	scans scanUseCase.ScanUseCase,
	logger *slog.Logger,
	writer io.Writer,
	input scanDomain.HealInput,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	result, err := scans.Heal(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to heal scan queue: %w", err)
	}

	logger.Info("scan heal completed",
		slog.Int("stale_requeued", result.StaleRequeued),
		slog.Int("error_requeued", result.ErrorRequeued),
		slog.Int("max_attempt_jobs", result.MaxAttemptJobs),
	)

	if format == "json" {
		return writeJSON(writer, result)
	}
	_, _ = fmt.Fprintf(writer, "Stale requeued:   %d\n", result.StaleRequeued)
	_, _ = fmt.Fprintf(writer, "Error requeued:   %d\n", result.ErrorRequeued)
	_, _ = fmt.Fprintf(writer, "Max attempt jobs: %d\n", result.MaxAttemptJobs)
	return nil
}
