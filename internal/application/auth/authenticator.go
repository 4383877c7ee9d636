// Package auth resolves API keys to the user they act for.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/infrastructure/keygen"
)

// Default configuration values.
const (
	DefaultOperationTimeout = 5 * time.Second
	DefaultUpdateQueueSize  = 1000
)

// Config holds configuration for the Authenticator.
type Config struct {
	OperationTimeout time.Duration // Timeout for storage operations
	UpdateQueueSize  int           // Buffer size for last_used_at updates
}

// Principal is the caller behind a validated key.
type Principal struct {
	KeyID string
	User  access.User
}

type keyUse struct {
	keyID string
	at    time.Time
}

// Authenticator validates API keys and tracks their last use.
//
// last_used_at writes are queued and applied by one background worker so a
// burst of requests never fans out into a burst of goroutines. When the
// queue is full the update is dropped.
type Authenticator struct {
	repo             Repository
	appCtx           context.Context
	uses             chan keyUse
	stop             chan struct{}
	stopOnce         sync.Once
	wg               sync.WaitGroup
	operationTimeout time.Duration
	now              func() time.Time
}

// NewAuthenticator creates an authenticator and starts its last-use worker.
// ctx is the application context; cancelling it aborts in-flight updates.
// A zero OperationTimeout disables the storage timeout.
func NewAuthenticator(ctx context.Context, repo Repository, config Config) *Authenticator {
	if config.OperationTimeout < 0 {
		config.OperationTimeout = DefaultOperationTimeout
	}
	if config.UpdateQueueSize <= 0 {
		config.UpdateQueueSize = DefaultUpdateQueueSize
	}

	a := &Authenticator{
		repo:             repo,
		appCtx:           ctx,
		uses:             make(chan keyUse, config.UpdateQueueSize),
		stop:             make(chan struct{}),
		operationTimeout: config.OperationTimeout,
		now:              func() time.Time { return time.Now().UTC() },
	}

	a.wg.Add(1)
	go a.recordUses()

	return a
}

func (a *Authenticator) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if a.operationTimeout == 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.operationTimeout)
}

func (a *Authenticator) recordUses() {
	defer a.wg.Done()

	for {
		select {
		case use := <-a.uses:
			ctx, cancel := a.withTimeout(a.appCtx)
			if err := a.repo.UpdateLastUsed(ctx, use.keyID, use.at); err != nil {
				slog.WarnContext(ctx, "failed to record API key use",
					slog.String("key_id", use.keyID),
					slog.String("error", err.Error()))
			}
			cancel()

		case <-a.stop:
			// Drain with a fresh context: appCtx is usually cancelled by now.
			for {
				select {
				case use := <-a.uses:
					ctx, cancel := a.withTimeout(context.Background())
					_ = a.repo.UpdateLastUsed(ctx, use.keyID, use.at)
					cancel()
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops the worker after it drains queued updates, or when ctx
// expires. Safe to call more than once.
func (a *Authenticator) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		close(a.stop)

		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("shutdown timeout: %w", ctx.Err())
		}
	})
	return err
}

// Authenticate validates apiKey and loads the user it acts for.
// Every failure, including a key whose user has been removed, is reported
// as domain.ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (*Principal, error) {
	parts, err := keygen.Parse(apiKey)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	opCtx, cancel := a.withTimeout(ctx)
	defer cancel()

	key, err := a.repo.FindByShortToken(opCtx, parts.ShortToken)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.ErrorContext(ctx, "API key lookup failed", "error", err)
		}
		return nil, domain.ErrUnauthorized
	}

	presented := keygen.Hash(parts.Secret)
	if subtle.ConstantTimeCompare([]byte(key.LongSecretHash), []byte(presented)) != 1 {
		return nil, domain.ErrUnauthorized
	}
	if !key.IsActive {
		return nil, domain.ErrUnauthorized
	}
	now := a.now()
	if key.ExpiresAt != nil && key.ExpiresAt.Before(now) {
		return nil, domain.ErrUnauthorized
	}

	user, err := a.repo.FindUserByID(opCtx, key.UserID)
	if err != nil {
		slog.WarnContext(ctx, "API key user not found", "key_id", key.ID, "user_id", key.UserID)
		return nil, domain.ErrUnauthorized
	}

	select {
	case a.uses <- keyUse{keyID: key.ID, at: now}:
	default:
		slog.WarnContext(ctx, "dropped API key use, queue full", slog.String("key_id", key.ID))
	}

	return &Principal{
		KeyID: key.ID,
		User:  access.User{ID: user.ID, Roles: user.Roles},
	}, nil
}

// IssueInput describes a key to mint.
type IssueInput struct {
	UserID    string
	Name      string
	KeyType   string
	Service   string
	Version   string
	ExpiresAt *time.Time
}

// IssueAPIKey mints a key for an existing user and returns it in full.
// The plain key is not stored and cannot be recovered later.
func IssueAPIKey(ctx context.Context, repo Repository, in IssueInput) (string, error) {
	if _, err := repo.FindUserByID(ctx, in.UserID); err != nil {
		return "", err
	}
	if in.KeyType == "" {
		in.KeyType = keygen.DefaultType
	}
	if in.Service == "" {
		in.Service = keygen.DefaultService
	}
	if in.Version == "" {
		in.Version = keygen.DefaultVersion
	}

	parts, err := keygen.Generate(in.KeyType, in.Service, in.Version)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate key ID: %w", err)
	}

	err = repo.CreateAPIKey(ctx, &domain.APIKey{
		ID:             id.String(),
		UserID:         in.UserID,
		KeyType:        parts.Type,
		Service:        parts.Service,
		Version:        parts.Version,
		ShortToken:     parts.ShortToken,
		LongSecretHash: keygen.Hash(parts.Secret),
		Name:           in.Name,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      in.ExpiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create API key: %w", err)
	}

	return parts.Full, nil
}
