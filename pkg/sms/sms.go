package sms

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const whatsAppPrefix = "whatsapp:"

var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

var ErrInvalidNumber = errors.New("invalid phone number")

// IsE164 reports whether number is in international E.164 form.
func IsE164(number string) bool {
	return e164.MatchString(number)
}

// MessageCreator is the slice of the Twilio REST API this package uses.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Message is an outbound SMS or WhatsApp message. ContentSID selects an
// approved WhatsApp template, in which case Body is ignored.
type Message struct {
	From             string
	To               string
	Body             string
	ContentSID       string
	ContentVariables map[string]any
	StatusCallback   string
}

type Client struct {
	api MessageCreator
}

func NewClient(accountSID, authToken string) *Client {
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewClientWithAPI(rc.Api)
}

func NewClientWithAPI(api MessageCreator) *Client {
	return &Client{api: api}
}

// Send delivers a plain SMS.
func (c *Client) Send(msg Message) (*twilioApi.ApiV2010Message, error) {
	if !IsE164(msg.To) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNumber, msg.To)
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(msg.From)
	params.SetBody(msg.Body)
	if msg.StatusCallback != "" {
		params.SetStatusCallback(msg.StatusCallback)
	}
	return c.api.CreateMessage(params)
}

// SendWhatsApp delivers a WhatsApp message, either free-form or from a content template.
func (c *Client) SendWhatsApp(msg Message) (*twilioApi.ApiV2010Message, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(withWhatsAppPrefix(msg.To))
	params.SetFrom(withWhatsAppPrefix(msg.From))
	if msg.ContentSID != "" {
		params.SetContentSid(msg.ContentSID)
		if len(msg.ContentVariables) > 0 {
			vars, err := json.Marshal(msg.ContentVariables)
			if err != nil {
				return nil, fmt.Errorf("failed to encode content variables: %w", err)
			}
			params.SetContentVariables(string(vars))
		}
	} else {
		params.SetBody(msg.Body)
	}
	if msg.StatusCallback != "" {
		params.SetStatusCallback(msg.StatusCallback)
	}
	return c.api.CreateMessage(params)
}

func withWhatsAppPrefix(number string) string {
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}
