package providers

import (
	"errors"
	"fmt"

	"github.com/twilio/twilio-go/client"
)

// ProviderError is a failed call to an external messaging provider.
type ProviderError struct {
	Provider string
	Code     int
	Status   int
	Message  string
	MoreInfo string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error %d: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Snapshot is the structured form stored on the notification record.
func (e *ProviderError) Snapshot() map[string]any {
	snap := map[string]any{
		"provider": e.Provider,
		"message":  e.Message,
	}
	if e.Code != 0 {
		snap["code"] = e.Code
	}
	if e.Status != 0 {
		snap["status"] = e.Status
	}
	if e.MoreInfo != "" {
		snap["more_info"] = e.MoreInfo
	}
	return snap
}

func smtpError(err error) *ProviderError {
	return &ProviderError{Provider: "smtp", Message: err.Error(), Err: err}
}

func twilioError(err error) *ProviderError {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		return &ProviderError{
			Provider: "twilio",
			Code:     restErr.Code,
			Status:   restErr.Status,
			Message:  restErr.Message,
			MoreInfo: restErr.MoreInfo,
			Err:      err,
		}
	}
	return &ProviderError{Provider: "twilio", Message: err.Error(), Err: err}
}
