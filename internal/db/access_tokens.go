package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"notify-gateway/internal/models"
)

// GetAccessToken loads an access token by id.
func (d *DB) GetAccessToken(ctx context.Context, id string) (*models.AccessToken, error) {
	var t models.AccessToken
	key, err := parseID("access token", id)
	if err != nil {
		return nil, err
	}
	query := `
        SELECT id::text, name, allowed_channels, rate_limit_per_minute, is_active, expires_at, created_at
        FROM access_tokens
        WHERE id = $1`
	err = d.Pool.QueryRow(ctx, query, key).Scan(
		&t.ID, &t.Name, &t.AllowedChannels, &t.RateLimitPerMinute, &t.IsActive, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no access token found for id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get access token %s: %w", id, err)
	}
	return &t, nil
}

// IsIPBlacklisted reports whether ip has an unexpired blacklist entry.
func (d *DB) IsIPBlacklisted(ctx context.Context, ip string) (bool, error) {
	var blocked bool
	query := `
        SELECT EXISTS (
            SELECT 1 FROM ip_blacklist
            WHERE ip = $1 AND (expires_at IS NULL OR expires_at > NOW())
        )`
	if err := d.Pool.QueryRow(ctx, query, ip).Scan(&blocked); err != nil {
		return false, fmt.Errorf("failed to check blacklist for %s: %w", ip, err)
	}
	return blocked, nil
}
