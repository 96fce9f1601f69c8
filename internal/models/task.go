package models

import "time"

// Task is a notification request received from the message bus.
type Task struct {
	RequestID     string         `json:"request_id"`
	AccessTokenID string         `json:"access_token_id"`
	Channel       string         `json:"channel"`
	Recipient     string         `json:"recipient"`
	RecipientName string         `json:"recipient_name,omitempty"`
	Subject       string         `json:"subject,omitempty"`
	Message       string         `json:"message"`
	TemplateID    string         `json:"template_id,omitempty"`
	TemplateData  map[string]any `json:"template_data,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ScheduledFor  *time.Time     `json:"scheduled_for,omitempty"`
}
