package otp

import (
	"context"
	"time"
)

// Entry is a live one-time code for one identifier.
type Entry struct {
	Identifier  string    `json:"identifier"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	CreatedAt   time.Time `json:"created_at"`
}

// Mutation tells Backend.Update what to do with the entry after fn returns.
type Mutation int

const (
	Keep Mutation = iota
	Remove
)

// Backend stores entries keyed by identifier and drops them once they expire.
// Update must apply fn atomically with respect to other calls for the same id.
type Backend interface {
	Put(ctx context.Context, e Entry) error
	// Get returns nil, nil when no entry exists.
	Get(ctx context.Context, id string) (*Entry, error)
	Update(ctx context.Context, id string, fn func(e *Entry) Mutation) (found bool, err error)
	Delete(ctx context.Context, id string) error
}
