package models

import (
	"slices"
	"time"
)

// AccessToken scopes an API caller: which channels it may use and how fast.
type AccessToken struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	AllowedChannels    []string   `json:"allowed_channels"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	IsActive           bool       `json:"is_active"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Usable reports whether the token is active and not expired at now.
func (t *AccessToken) Usable(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}

// Allows reports whether the token may send on channel. An empty list allows all.
func (t *AccessToken) Allows(channel Channel) bool {
	if len(t.AllowedChannels) == 0 {
		return true
	}
	return slices.Contains(t.AllowedChannels, string(channel))
}
