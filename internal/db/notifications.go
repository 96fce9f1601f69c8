package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"notify-gateway/internal/models"
)

const notificationColumns = `
	id::text, COALESCE(access_token_id::text, ''), channel, recipient, recipient_name,
	subject, message, template_id, template_data, metadata, status,
	scheduled_for, provider_message_id, error_message, provider_response, retry_count,
	max_retries, sent_at, created_at, updated_at`

// CreateNotification inserts a new notification record.
func (d *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
        INSERT INTO notifications (
            id, access_token_id, channel, recipient, recipient_name, subject, message,
            template_id, template_data, metadata, status, scheduled_for, provider_message_id,
            error_message, provider_response, retry_count, max_retries, sent_at, created_at, updated_at
        )
        VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9, $10,
                $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := d.Pool.Exec(ctx, query,
		n.ID, n.AccessTokenID, n.Channel, n.Recipient, n.RecipientName, n.Subject, n.Message,
		n.TemplateID, n.TemplateData, n.Metadata, n.Status, n.ScheduledFor, n.ProviderMessageID,
		n.ErrorMessage, n.ProviderResponse, n.RetryCount, n.MaxRetries, n.SentAt, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// SaveNotification persists the mutable delivery fields of an existing record.
func (d *DB) SaveNotification(ctx context.Context, n *models.Notification) error {
	query := `
        UPDATE notifications
        SET subject = $1, message = $2, status = $3, provider_message_id = $4,
            error_message = $5, provider_response = $6, retry_count = $7, sent_at = $8, updated_at = $9
        WHERE id = $10`
	result, err := d.Pool.Exec(ctx, query,
		n.Subject, n.Message, n.Status, n.ProviderMessageID,
		n.ErrorMessage, n.ProviderResponse, n.RetryCount, n.SentAt, n.UpdatedAt, n.ID)
	if err != nil {
		return fmt.Errorf("failed to save notification %s: %w", n.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no notification updated for id %s: %w", n.ID, ErrNotFound)
	}
	return nil
}

// GetNotification loads a notification by id.
func (d *DB) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	key, err := parseID("notification", id)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(d.Pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no notification found for id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification %s: %w", id, err)
	}
	return n, nil
}

// ListNotificationsByToken returns the newest notifications sent under an access token.
func (d *DB) ListNotificationsByToken(ctx context.Context, tokenID string, limit, offset int) ([]*models.Notification, error) {
	key, err := parseID("access token", tokenID)
	if err != nil {
		// a key that is not a uuid owns no records
		return nil, nil
	}
	query := `SELECT ` + notificationColumns + `
        FROM notifications
        WHERE access_token_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	rows, err := d.Pool.Query(ctx, query, key, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for token %s: %w", tokenID, err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(
		&n.ID, &n.AccessTokenID, &n.Channel, &n.Recipient, &n.RecipientName,
		&n.Subject, &n.Message, &n.TemplateID, &n.TemplateData, &n.Metadata, &n.Status,
		&n.ScheduledFor, &n.ProviderMessageID, &n.ErrorMessage, &n.ProviderResponse, &n.RetryCount,
		&n.MaxRetries, &n.SentAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
