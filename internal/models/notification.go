package models

import (
	"strings"
	"time"
)

// Channel is a delivery medium for a notification.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
)

// ParseChannel resolves a channel name case-insensitively.
func ParseChannel(name string) (Channel, bool) {
	switch Channel(strings.ToLower(strings.TrimSpace(name))) {
	case ChannelEmail:
		return ChannelEmail, true
	case ChannelSMS:
		return ChannelSMS, true
	case ChannelWhatsApp:
		return ChannelWhatsApp, true
	case ChannelPush:
		return ChannelPush, true
	default:
		return "", false
	}
}

func (c Channel) String() string {
	return string(c)
}

// Status is the delivery state of a notification record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusBounced   Status = "bounced"
)

const DefaultMaxRetries = 3

// Notification is one dispatch attempt. A retry produces a new record.
type Notification struct {
	ID                string         `json:"id"`
	AccessTokenID     string         `json:"access_token_id"`
	Channel           Channel        `json:"channel"`
	Recipient         string         `json:"recipient"`
	RecipientName     string         `json:"recipient_name,omitempty"`
	Subject           string         `json:"subject,omitempty"`
	Message           string         `json:"message"`
	TemplateID        string         `json:"template_id,omitempty"`
	TemplateData      map[string]any `json:"template_data,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	Status            Status         `json:"status"`
	ScheduledFor      *time.Time     `json:"scheduled_for,omitempty"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	ProviderResponse  map[string]any `json:"provider_response,omitempty"`
	RetryCount        int            `json:"retry_count"`
	MaxRetries        int            `json:"max_retries"`
	SentAt            *time.Time     `json:"sent_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsScheduledAfter reports whether the record must not be sent before a later time.
func (n *Notification) IsScheduledAfter(now time.Time) bool {
	return n.ScheduledFor != nil && n.ScheduledFor.After(now)
}

// MarkSent records a successful provider call.
func (n *Notification) MarkSent(at time.Time, messageID string, response map[string]any) {
	n.Status = StatusSent
	n.SentAt = &at
	n.ProviderMessageID = messageID
	n.ProviderResponse = response
	n.ErrorMessage = ""
	n.UpdatedAt = at
}

// MarkFailed records a failed attempt together with the provider's error snapshot.
func (n *Notification) MarkFailed(at time.Time, errMsg string, response map[string]any) {
	n.Status = StatusFailed
	n.ErrorMessage = errMsg
	n.ProviderResponse = response
	n.UpdatedAt = at
}

// MetadataString returns a string metadata value or "".
func (n *Notification) MetadataString(key string) string {
	if n.Metadata == nil {
		return ""
	}
	v, ok := n.Metadata[key].(string)
	if !ok {
		return ""
	}
	return v
}
