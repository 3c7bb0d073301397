package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditService "github.com/allisson/docvault/internal/audit/service"
	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
)

const verifyPageSize = 500

// Config controls ledger-wide append behavior.
type Config struct {
	// Strict propagates append failures to callers.
	Strict bool
	// MaxRetries bounds retries after losing a race for a stream head.
	MaxRetries uint64
}

type auditUseCase struct {
	txManager database.TxManager
	eventRepo EventRepository
	hasher    auditService.ChainHasher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// Append locks the stream head inside a transaction, so concurrent writers to the same
// stream are serialized by the database and seq stays gap-free. Losing the race to create
// a new stream head, or a deadlock, restarts the whole transaction.
func (a *auditUseCase) Append(
	ctx context.Context,
	input *auditDomain.AppendInput,
) (*auditDomain.Event, error) {
	event, err := a.append(ctx, input)
	if err == nil {
		return event, nil
	}

	strict := a.cfg.Strict
	if input.Strict != nil {
		strict = *input.Strict
	}
	if strict {
		return nil, err
	}

	a.logger.Error("audit append failed",
		slog.String("stream_key", input.StreamKey),
		slog.String("action", input.Action),
		slog.Any("error", err),
	)
	return nil, nil
}

func (a *auditUseCase) append(
	ctx context.Context,
	input *auditDomain.AppendInput,
) (*auditDomain.Event, error) {
	if err := auditDomain.ValidateStreamKey(input.StreamKey); err != nil {
		return nil, err
	}
	if input.Action == "" {
		return nil, auditDomain.ErrInvalidAction
	}

	canonical, err := a.hasher.Canonicalize(input.Payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	payloadHash := a.hasher.PayloadHash(canonical)

	actor := input.Actor
	if actor == "" {
		actor = auditDomain.ActorFromContext(ctx)
	}

	var event *auditDomain.Event
	err = database.RetryOnConflict(ctx, a.cfg.MaxRetries, func(ctx context.Context) error {
		return a.txManager.WithTx(ctx, func(ctx context.Context) error {
			now := auditService.NormalizeOccurredAt(a.now())

			head, err := a.eventRepo.LockStreamHead(ctx, input.StreamKey)
			if apperrors.Is(err, auditDomain.ErrStreamNotFound) {
				if err := a.eventRepo.CreateStreamHead(ctx, input.StreamKey, now); err != nil {
					return err
				}
				head, err = a.eventRepo.LockStreamHead(ctx, input.StreamKey)
			}
			if err != nil {
				return err
			}

			e := &auditDomain.Event{
				ID:           uuid.Must(uuid.NewV7()),
				StreamKey:    input.StreamKey,
				Seq:          head.LastSeq + 1,
				PreviousHash: head.LastHash,
				Action:       input.Action,
				Payload:      json.RawMessage(canonical),
				Actor:        actor,
				Subject:      input.Subject,
				OccurredAt:   now,
			}
			e.EventHash = a.hasher.EventHash(e, payloadHash)

			if err := a.eventRepo.Create(ctx, e); err != nil {
				return err
			}
			if err := a.eventRepo.UpdateStreamHead(ctx, e.StreamKey, e.Seq, e.EventHash, now); err != nil {
				return err
			}
			event = e
			return nil
		})
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to append audit event")
	}

	return event, nil
}

// List treats offset as a seq cursor: seq runs 1..N with no gaps, so skipping offset
// events means starting after seq == offset.
func (a *auditUseCase) List(
	ctx context.Context,
	streamKey string,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	if err := auditDomain.ValidateStreamKey(streamKey); err != nil {
		return nil, err
	}
	if _, err := a.eventRepo.GetStream(ctx, streamKey); err != nil {
		return nil, err
	}

	events, err := a.eventRepo.ListByStream(ctx, streamKey, int64(offset), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return events, nil
}

// Verify walks the stream in seq order and recomputes every hash. It stops at the first
// failure: a gap in seq, a previous hash that does not match the prior event, a stored
// hash that does not match its recomputed value, or a head that disagrees with the last
// event (which catches truncated tails).
func (a *auditUseCase) Verify(ctx context.Context, streamKey string) (*auditDomain.VerifyResult, error) {
	if err := auditDomain.ValidateStreamKey(streamKey); err != nil {
		return nil, err
	}

	// The head and every event page must come from the same view, or an append racing
	// the walk reads as a truncated chain.
	var result *auditDomain.VerifyResult
	err := a.txManager.WithSnapshot(ctx, func(ctx context.Context) error {
		var err error
		result, err = a.verifyChain(ctx, streamKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *auditUseCase) verifyChain(ctx context.Context, streamKey string) (*auditDomain.VerifyResult, error) {
	head, err := a.eventRepo.GetStream(ctx, streamKey)
	if err != nil {
		return nil, err
	}

	result := &auditDomain.VerifyResult{StreamKey: streamKey, OK: true}
	fail := func(seq int64, reason string) *auditDomain.VerifyResult {
		result.OK = false
		result.FirstBadSeq = &seq
		result.Reason = reason
		return result
	}

	var prevSeq int64
	prevHash := ""
	for {
		events, err := a.eventRepo.ListByStream(ctx, streamKey, prevSeq, verifyPageSize)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to read audit events")
		}

		for _, e := range events {
			if e.Seq != prevSeq+1 {
				return fail(prevSeq+1, fmt.Sprintf("sequence gap: expected %d, found %d", prevSeq+1, e.Seq)), nil
			}
			if e.PreviousHash != prevHash {
				return fail(e.Seq, "previous hash does not match prior event"), nil
			}
			canonical, err := a.hasher.Canonicalize(e.Payload)
			if err != nil {
				return fail(e.Seq, "payload is not valid json"), nil
			}
			if a.hasher.EventHash(e, a.hasher.PayloadHash(canonical)) != e.EventHash {
				return fail(e.Seq, "event hash mismatch"), nil
			}

			prevSeq = e.Seq
			prevHash = e.EventHash
			result.Checked++
		}

		if len(events) < verifyPageSize {
			break
		}
	}

	if head.LastSeq != prevSeq || head.LastHash != prevHash {
		return fail(prevSeq+1, fmt.Sprintf("stream head at seq %d but chain ends at %d", head.LastSeq, prevSeq)), nil
	}

	return result, nil
}

func (a *auditUseCase) ListStreams(ctx context.Context) ([]*auditDomain.Stream, error) {
	streams, err := a.eventRepo.ListStreams(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit streams")
	}
	return streams, nil
}

func (a *auditUseCase) VerifyAll(ctx context.Context) ([]*auditDomain.VerifyResult, error) {
	streams, err := a.ListStreams(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*auditDomain.VerifyResult, 0, len(streams))
	for _, s := range streams {
		result, err := a.Verify(ctx, s.StreamKey)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(
	txManager database.TxManager,
	eventRepo EventRepository,
	hasher auditService.ChainHasher,
	cfg Config,
	logger *slog.Logger,
) AuditUseCase {
	return &auditUseCase{
		txManager: txManager,
		eventRepo: eventRepo,
		hasher:    hasher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}
