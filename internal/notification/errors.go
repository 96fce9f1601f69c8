package notification

import (
	"errors"

	"notify-gateway/pkg/email"
	"notify-gateway/pkg/sms"
)

var (
	// ErrUnsupportedChannel is returned for channels with no sender. Never retried.
	ErrUnsupportedChannel = errors.New("unsupported notification channel")
	// ErrInvalidRecipient marks a recipient the provider can never accept. Never retried.
	ErrInvalidRecipient = errors.New("invalid recipient")
)

func isPermanent(err error) bool {
	return errors.Is(err, ErrUnsupportedChannel) ||
		errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, email.ErrInvalidAddress) ||
		errors.Is(err, sms.ErrInvalidNumber)
}
