package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"notify-gateway/internal/models"
)

// GetTemplate loads a template by id regardless of its active flag.
func (d *DB) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	var t models.Template
	key, err := parseID("template", id)
	if err != nil {
		return nil, err
	}
	query := `
        SELECT id::text, name, channel, subject, body, variables, is_active, created_at, updated_at
        FROM templates
        WHERE id = $1`
	err = d.Pool.QueryRow(ctx, query, key).Scan(
		&t.ID, &t.Name, &t.Channel, &t.Subject, &t.Body, &t.Variables, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no template found for id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get template %s: %w", id, err)
	}
	return &t, nil
}
