package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rezkam/atlas/internal/domain"
)

// FindByShortToken retrieves an active API key by its short token for validation.
func (s *Store) FindByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error) {
	var (
		k                 domain.APIKey
		lastUsed, expires sql.NullTime
	)
	err := s.queryRow(ctx, `SELECT id, user_id, key_type, service, version, short_token, long_secret_hash,
		name, is_active, created_at, last_used_at, expires_at
		FROM api_keys WHERE short_token = ? AND is_active = ?`, shortToken, true).
		Scan(&k.ID, &k.UserID, &k.KeyType, &k.Service, &k.Version, &k.ShortToken, &k.LongSecretHash,
			&k.Name, &k.IsActive, &k.CreatedAt, &lastUsed, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: API key", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	k.CreatedAt = k.CreatedAt.UTC()
	k.LastUsedAt = timePtr(lastUsed)
	k.ExpiresAt = timePtr(expires)
	return &k, nil
}

// UpdateLastUsed updates the last used timestamp for an API key.
// Only updates if the new timestamp is later than the current value (or current value is NULL).
// Returns ErrNotFound if the API key doesn't exist.
func (s *Store) UpdateLastUsed(ctx context.Context, keyID string, timestamp time.Time) error {
	if err := checkID(keyID); err != nil {
		return err
	}

	res, err := s.exec(ctx, `UPDATE api_keys SET last_used_at = ?
		WHERE id = ? AND (last_used_at IS NULL OR last_used_at < ?)`,
		timestamp.UTC(), keyID, timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Either the key is missing or the timestamp was not later.
	var exists int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM api_keys WHERE id = ?`, keyID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check key existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: API key", domain.ErrNotFound)
	}
	return nil
}

// CreateAPIKey inserts an API key.
func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	if err := checkID(key.ID); err != nil {
		return err
	}
	_, err := s.exec(ctx, `INSERT INTO api_keys (id, user_id, key_type, service, version, short_token,
		long_secret_hash, name, is_active, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.UserID, key.KeyType, key.Service, key.Version, key.ShortToken,
		key.LongSecretHash, key.Name, key.IsActive, key.CreatedAt.UTC(), nullTime(key.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	return nil
}
