package usecase

import (
	"context"
	"log/slog"
	"time"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
)

type masterKeyUseCase struct {
	txManager     database.TxManager
	masterKeyRepo MasterKeyRepository
	chain         *cryptoDomain.MasterKeyChain
	auditUseCase  auditUseCase.AuditUseCase
	logger        *slog.Logger
	now           func() time.Time
}

func (m *masterKeyUseCase) material(state *cryptoDomain.MasterKeyState) (*cryptoDomain.MasterKey, error) {
	loaded, ok := m.chain.Get(state.ID)
	if !ok {
		return nil, apperrors.Wrapf(cryptoDomain.ErrMasterKeyMaterialMissing, "master key %s", state.ID)
	}
	return &cryptoDomain.MasterKey{
		ID:      state.ID,
		Key:     loaded.Key,
		Active:  state.Active,
		Revoked: state.Revoked,
	}, nil
}

func (m *masterKeyUseCase) GetActive(ctx context.Context) (*cryptoDomain.MasterKey, error) {
	state, err := m.masterKeyRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	return m.material(state)
}

func (m *masterKeyUseCase) GetByID(ctx context.Context, id string) (*cryptoDomain.MasterKey, error) {
	state, err := m.masterKeyRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.material(state)
}

// SetActive clears the previous active flag and sets the new one in one transaction. The
// unique index on the active column rejects a concurrent activation instead of letting
// two keys end up active.
func (m *masterKeyUseCase) SetActive(
	ctx context.Context,
	id, reason string,
) (*cryptoDomain.MasterKeyState, error) {
	if _, ok := m.chain.Get(id); !ok {
		return nil, apperrors.Wrapf(cryptoDomain.ErrMasterKeyMaterialMissing, "master key %s", id)
	}

	var previousID string
	var activated *cryptoDomain.MasterKeyState
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		target, err := m.masterKeyRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if target.Revoked {
			return cryptoDomain.ErrMasterKeyRevoked
		}

		current, err := m.masterKeyRepo.GetActive(ctx)
		switch {
		case err == nil:
			previousID = current.ID
		case !apperrors.Is(err, cryptoDomain.ErrNoActiveMasterKey):
			return err
		}

		now := m.now().UTC()
		if err := m.masterKeyRepo.ClearActive(ctx, now); err != nil {
			return err
		}
		changed, err := m.masterKeyRepo.MarkActive(ctx, id, now)
		if err != nil {
			return err
		}
		if !changed {
			// Revoked between the read above and the update.
			return cryptoDomain.ErrMasterKeyRevoked
		}

		target.Active = true
		target.UpdatedAt = now
		activated = target
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Wrap(apperrors.ErrConflict, "concurrent master key activation")
		}
		return nil, err
	}

	if err := m.chain.SetActive(id); err != nil {
		return nil, err
	}

	m.logger.Info("master key activated",
		slog.String("master_key_id", id),
		slog.String("previous_master_key_id", previousID),
	)
	_, err = m.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamMasterKeys,
		Action:    auditDomain.ActionMasterKeyActivated,
		Subject:   id,
		Payload: map[string]any{
			"master_key_id":          id,
			"previous_master_key_id": previousID,
			"reason":                 reason,
		},
	})
	if err != nil {
		return nil, err
	}

	return activated, nil
}

// Revoke is idempotent. Revoking the active key leaves it active so existing data stays
// readable, but the envelope engine refuses to wrap under it until another key is activated.
func (m *masterKeyUseCase) Revoke(
	ctx context.Context,
	id, reason string,
) (*cryptoDomain.MasterKeyState, error) {
	state, err := m.masterKeyRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Revoked {
		return state, nil
	}

	now := m.now().UTC()
	if err := m.masterKeyRepo.Revoke(ctx, id, reason, now); err != nil {
		return nil, err
	}
	state.Revoked = true
	state.RevokedReason = reason
	state.UpdatedAt = now

	logAttrs := []any{slog.String("master_key_id", id), slog.Bool("active", state.Active)}
	if state.Active {
		m.logger.Warn("active master key revoked, new wraps are refused until another key is activated", logAttrs...)
	} else {
		m.logger.Info("master key revoked", logAttrs...)
	}

	_, err = m.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamMasterKeys,
		Action:    auditDomain.ActionMasterKeyRevoked,
		Subject:   id,
		Payload: map[string]any{
			"master_key_id": id,
			"was_active":    state.Active,
			"reason":        reason,
		},
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

func (m *masterKeyUseCase) List(ctx context.Context) ([]*cryptoDomain.MasterKeyState, error) {
	return m.masterKeyRepo.List(ctx)
}

func (m *masterKeyUseCase) Sync(ctx context.Context) error {
	now := m.now().UTC()

	for _, id := range m.chain.IDs() {
		_, err := m.masterKeyRepo.Get(ctx, id)
		if err == nil {
			continue
		}
		if !apperrors.Is(err, cryptoDomain.ErrMasterKeyNotFound) {
			return err
		}

		err = m.masterKeyRepo.Create(ctx, &cryptoDomain.MasterKeyState{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			// Another instance registered it first.
			if database.IsUniqueViolation(err) {
				continue
			}
			return err
		}

		m.logger.Info("master key registered", slog.String("master_key_id", id))
		if _, err := m.auditUseCase.Append(ctx, &auditDomain.AppendInput{
			StreamKey: auditDomain.StreamMasterKeys,
			Action:    auditDomain.ActionMasterKeyRegistered,
			Subject:   id,
			Payload:   map[string]any{"master_key_id": id},
		}); err != nil {
			return err
		}
	}

	active, err := m.masterKeyRepo.GetActive(ctx)
	if apperrors.Is(err, cryptoDomain.ErrNoActiveMasterKey) {
		configured := m.chain.ActiveMasterKeyID()
		if configured == "" {
			return cryptoDomain.ErrNoActiveMasterKey
		}
		_, err := m.SetActive(ctx, configured, "initial activation from ACTIVE_MASTER_KEY_ID")
		return err
	}
	if err != nil {
		return err
	}

	if configured := m.chain.ActiveMasterKeyID(); configured != active.ID {
		m.logger.Info("registry active master key differs from ACTIVE_MASTER_KEY_ID, using registry",
			slog.String("registry_master_key_id", active.ID),
			slog.String("configured_master_key_id", configured),
		)
	}
	return m.chain.SetActive(active.ID)
}

// NewMasterKeyUseCase creates a new MasterKeyUseCase.
func NewMasterKeyUseCase(
	txManager database.TxManager,
	masterKeyRepo MasterKeyRepository,
	chain *cryptoDomain.MasterKeyChain,
	auditUseCase auditUseCase.AuditUseCase,
	logger *slog.Logger,
) MasterKeyUseCase {
	return &masterKeyUseCase{
		txManager:     txManager,
		masterKeyRepo: masterKeyRepo,
		chain:         chain,
		auditUseCase:  auditUseCase,
		logger:        logger,
		now:           time.Now,
	}
}
