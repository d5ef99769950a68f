package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const rateLimitSettingKey = "rate_limit"

// SettingsRepository stores operator-tunable settings as key/value rows
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the value for key, or "" when unset
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the value for key
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("setting %s cannot be empty", key)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, classify(err))
	}
	return nil
}

// RateLimit returns the stored rate limit (e.g. "5-S"), or "" when unset
func (r *SettingsRepository) RateLimit(ctx context.Context) (string, error) {
	return r.Get(ctx, rateLimitSettingKey)
}

// SetRateLimit stores the rate limit. Format: e.g. "5-S", "100-M".
func (r *SettingsRepository) SetRateLimit(ctx context.Context, rate string) error {
	return r.Set(ctx, rateLimitSettingKey, rate)
}
