package auth

import (
	"context"
	"time"

	"github.com/rezkam/atlas/internal/domain"
)

// Repository defines storage operations for API keys and the users they act for.
type Repository interface {
	// FindByShortToken retrieves an active API key by its short token.
	// Returns domain.ErrNotFound if there is none.
	FindByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error)

	// UpdateLastUsed records when a key was last presented.
	UpdateLastUsed(ctx context.Context, keyID string, timestamp time.Time) error

	// CreateAPIKey inserts an API key.
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error

	// FindUserByID retrieves a user with roles.
	// Returns domain.ErrUserNotFound if the user does not exist.
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}
