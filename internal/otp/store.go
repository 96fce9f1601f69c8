package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

const (
	DefaultLength      = 6
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
)

// Verification result codes.
const (
	CodeVerified    = "OTP_VERIFIED"
	CodeNotFound    = "OTP_NOT_FOUND"
	CodeExpired     = "OTP_EXPIRED"
	CodeMaxAttempts = "MAX_ATTEMPTS_EXCEEDED"
	CodeInvalid     = "INVALID_OTP"
)

type VerifyResult struct {
	Valid             bool   `json:"valid"`
	Code              string `json:"code"`
	Message           string `json:"message"`
	RemainingAttempts int    `json:"remainingAttempts,omitempty"`
}

// Info describes a live entry without revealing its code.
type Info struct {
	Identifier        string    `json:"identifier"`
	ExpiresAt         time.Time `json:"expiresAt"`
	CreatedAt         time.Time `json:"createdAt"`
	Attempts          int       `json:"attempts"`
	MaxAttempts       int       `json:"maxAttempts"`
	RemainingAttempts int       `json:"remainingAttempts"`
	Expired           bool      `json:"expired"`
}

// Store issues and checks codes on top of a Backend.
type Store struct {
	backend     Backend
	maxAttempts int
	now         func() time.Time
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, maxAttempts: DefaultMaxAttempts, now: time.Now}
}

// Generate returns length uniformly random decimal digits.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	ten := big.NewInt(10)
	code := make([]byte, length)
	for i := range code {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		code[i] = byte('0' + d.Int64())
	}
	return string(code), nil
}

// Save replaces any entry for id with code, valid for ttl.
func (s *Store) Save(ctx context.Context, id, code string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	return s.backend.Put(ctx, Entry{
		Identifier:  id,
		Code:        code,
		ExpiresAt:   now.Add(ttl),
		MaxAttempts: s.maxAttempts,
		CreatedAt:   now,
	})
}

// Verify checks code against the entry for id. Expiry is checked before the
// attempt limit; a check that reaches the comparison always counts as an attempt.
func (s *Store) Verify(ctx context.Context, id, code string) (VerifyResult, error) {
	var res VerifyResult
	now := s.now()

	found, err := s.backend.Update(ctx, id, func(e *Entry) Mutation {
		if now.After(e.ExpiresAt) {
			res = VerifyResult{Code: CodeExpired, Message: "OTP has expired"}
			return Remove
		}
		if e.Attempts >= e.MaxAttempts {
			res = VerifyResult{Code: CodeMaxAttempts, Message: "Maximum verification attempts exceeded"}
			return Remove
		}
		e.Attempts++
		if subtle.ConstantTimeCompare([]byte(e.Code), []byte(code)) == 1 {
			res = VerifyResult{Valid: true, Code: CodeVerified, Message: "OTP verified successfully"}
			return Remove
		}
		remaining := e.MaxAttempts - e.Attempts
		res = VerifyResult{
			Code:              CodeInvalid,
			Message:           fmt.Sprintf("Invalid OTP. %d attempts remaining", remaining),
			RemainingAttempts: remaining,
		}
		return Keep
	})
	if err != nil {
		return VerifyResult{}, err
	}
	if !found {
		return VerifyResult{Code: CodeNotFound, Message: "OTP not found or already used"}, nil
	}
	return res, nil
}

// Clear removes the entry for id, if any.
func (s *Store) Clear(ctx context.Context, id string) error {
	return s.backend.Delete(ctx, id)
}

// Info returns metadata for the entry, or nil when there is none.
func (s *Store) Info(ctx context.Context, id string) (*Info, error) {
	e, err := s.backend.Get(ctx, id)
	if err != nil || e == nil {
		return nil, err
	}
	return &Info{
		Identifier:        e.Identifier,
		ExpiresAt:         e.ExpiresAt,
		CreatedAt:         e.CreatedAt,
		Attempts:          e.Attempts,
		MaxAttempts:       e.MaxAttempts,
		RemainingAttempts: max(e.MaxAttempts-e.Attempts, 0),
		Expired:           s.now().After(e.ExpiresAt),
	}, nil
}
