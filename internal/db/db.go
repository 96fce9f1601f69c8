package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"notify-gateway/internal/utils"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

type DB struct {
	Pool *pgxpool.Pool
}

// New opens a pool and pings it, retrying while the database comes up.
func New(ctx context.Context, logger logrus.FieldLogger, dsn string, retries int) (*DB, error) {
	var pool *pgxpool.Pool
	err := utils.Retry(ctx, logger, retries, 2*time.Second, func(ctx context.Context) error {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}

// parseID turns a textual key into the uuid stored in primary and foreign key
// columns. Text that is not a uuid cannot match a row.
func parseID(kind, id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("no %s found for id %q: %w", kind, id, ErrNotFound)
	}
	return u, nil
}
