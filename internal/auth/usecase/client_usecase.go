package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
	authDomain "github.com/allisson/docvault/internal/auth/domain"
	authService "github.com/allisson/docvault/internal/auth/service"
	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

type clientUseCase struct {
	txManager     database.TxManager
	clientRepo    ClientRepository
	secretService authService.SecretService
	auditUseCase  auditUseCase.AuditUseCase
	logger        *slog.Logger
	now           func() time.Time
}

func (c *clientUseCase) Create(
	ctx context.Context,
	input *authDomain.CreateClientInput,
) (*authDomain.CreateClientOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, authDomain.ErrInvalidClientName
	}
	if !input.Role.Valid() {
		return nil, rbacDomain.ErrUnknownRole
	}

	plainSecret, hashedSecret, err := c.secretService.GenerateSecret()
	if err != nil {
		return nil, err
	}

	client := &authDomain.Client{
		ID:         uuid.Must(uuid.NewV7()),
		Name:       name,
		Role:       input.Role,
		SecretHash: hashedSecret,
		IsActive:   input.IsActive,
		CreatedAt:  c.now().UTC(),
	}

	err = c.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := c.clientRepo.Create(ctx, client); err != nil {
			return err
		}
		_, err := c.auditUseCase.Append(ctx, &auditDomain.AppendInput{
			StreamKey: auditDomain.StreamClients,
			Action:    auditDomain.ActionClientCreated,
			Subject:   client.ID.String(),
			Payload: map[string]any{
				"client_id": client.ID.String(),
				"name":      client.Name,
				"role":      string(client.Role),
				"is_active": client.IsActive,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("client created",
		slog.String("client_id", client.ID.String()),
		slog.String("role", string(client.Role)))

	return &authDomain.CreateClientOutput{ID: client.ID, PlainSecret: plainSecret}, nil
}

func (c *clientUseCase) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	return c.clientRepo.Get(ctx, clientID)
}

func (c *clientUseCase) List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error) {
	return c.clientRepo.List(ctx, offset, limit)
}

func (c *clientUseCase) Deactivate(ctx context.Context, clientID uuid.UUID) error {
	return c.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := c.clientRepo.SetActive(ctx, clientID, false); err != nil {
			return err
		}
		_, err := c.auditUseCase.Append(ctx, &auditDomain.AppendInput{
			StreamKey: auditDomain.StreamClients,
			Action:    auditDomain.ActionClientDeactivated,
			Subject:   clientID.String(),
			Payload:   map[string]any{"client_id": clientID.String()},
		})
		return err
	})
}

func (c *clientUseCase) Authenticate(
	ctx context.Context,
	clientID uuid.UUID,
	secret string,
) (*authDomain.Client, error) {
	client, err := c.clientRepo.Get(ctx, clientID)
	if err != nil {
		if apperrors.Is(err, authDomain.ErrClientNotFound) {
			c.secretService.BurnCompare(secret)
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !c.secretService.CompareSecret(secret, client.SecretHash) {
		return nil, authDomain.ErrInvalidCredentials
	}
	if !client.IsActive {
		return nil, authDomain.ErrClientInactive
	}
	return client, nil
}

// NewClientUseCase creates a new ClientUseCase.
func NewClientUseCase(
	txManager database.TxManager,
	clientRepo ClientRepository,
	secretService authService.SecretService,
	auditUseCase auditUseCase.AuditUseCase,
	logger *slog.Logger,
) ClientUseCase {
	return &clientUseCase{
		txManager:     txManager,
		clientRepo:    clientRepo,
		secretService: secretService,
		auditUseCase:  auditUseCase,
		logger:        logger,
		now:           time.Now,
	}
}
