package providers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"

	"notify-gateway/internal/config"
	"notify-gateway/pkg/email"
	"notify-gateway/pkg/sms"
)

// Receipt is the provider's acknowledgement of an accepted message.
type Receipt struct {
	MessageID string
	Raw       map[string]any
}

type EmailRequest struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	ReplyTo  string
}

type SMSRequest struct {
	To   string
	Body string
}

// WhatsAppRequest sends Body unless TemplateID names an approved content template.
type WhatsAppRequest struct {
	To             string
	Body           string
	TemplateID     string
	TemplateParams map[string]any
}

// Provider is the transactional messaging backend used by the channel senders.
type Provider interface {
	SendEmail(ctx context.Context, req EmailRequest) (*Receipt, error)
	SendSMS(ctx context.Context, req SMSRequest) (*Receipt, error)
	SendWhatsApp(ctx context.Context, req WhatsAppRequest) (*Receipt, error)
}

type Mailer interface {
	Send(msg email.Message) error
}

type Messenger interface {
	Send(msg sms.Message) (*twilioApi.ApiV2010Message, error)
	SendWhatsApp(msg sms.Message) (*twilioApi.ApiV2010Message, error)
}

type Options struct {
	SMSFrom        string
	WhatsAppFrom   string
	StatusCallback string
	MessageDomain  string
	EmailPerSec    int
	TwilioPerSec   int
}

// Client implements Provider on top of SMTP and Twilio, throttling each capability.
type Client struct {
	mailer       Mailer
	messenger    Messenger
	opts         Options
	emailLimiter *rate.Limiter
	smsLimiter   *rate.Limiter
}

func New(cfg config.Config) *Client {
	mailer := email.NewMailer(cfg.Email.SMTPServer, cfg.Email.SMTPPort, cfg.Email.Username, cfg.Email.Password,
		cfg.Email.FromAddress, cfg.Email.FromName)
	messenger := sms.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	return NewClient(mailer, messenger, Options{
		SMSFrom:        cfg.Twilio.SMSFrom,
		WhatsAppFrom:   cfg.Twilio.WhatsAppFrom,
		StatusCallback: cfg.Twilio.StatusCallback,
		MessageDomain:  domainOf(cfg.Email.FromAddress),
		EmailPerSec:    cfg.Email.RatePerSec,
		TwilioPerSec:   cfg.Twilio.RatePerSec,
	})
}

func NewClient(mailer Mailer, messenger Messenger, opts Options) *Client {
	if opts.MessageDomain == "" {
		opts.MessageDomain = "notify-gateway"
	}
	return &Client{
		mailer:       mailer,
		messenger:    messenger,
		opts:         opts,
		emailLimiter: newLimiter(opts.EmailPerSec),
		smsLimiter:   newLimiter(opts.TwilioPerSec),
	}
}

func newLimiter(perSec int) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSec), perSec)
}

func (c *Client) SendEmail(ctx context.Context, req EmailRequest) (*Receipt, error) {
	if err := c.emailLimiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Provider: "smtp", Message: "rate limit wait aborted", Err: err}
	}
	messageID := uuid.NewString() + "@" + c.opts.MessageDomain
	err := c.mailer.Send(email.Message{
		To:        req.To,
		ToName:    req.ToName,
		Subject:   req.Subject,
		HTMLBody:  req.HTMLBody,
		ReplyTo:   req.ReplyTo,
		MessageID: messageID,
	})
	if err != nil {
		return nil, smtpError(err)
	}
	return &Receipt{
		MessageID: messageID,
		Raw:       map[string]any{"message_id": messageID, "to": req.To},
	}, nil
}

func (c *Client) SendSMS(ctx context.Context, req SMSRequest) (*Receipt, error) {
	if err := c.smsLimiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Provider: "twilio", Message: "rate limit wait aborted", Err: err}
	}
	msg, err := c.messenger.Send(sms.Message{
		From:           c.opts.SMSFrom,
		To:             req.To,
		Body:           req.Body,
		StatusCallback: c.opts.StatusCallback,
	})
	if err != nil {
		return nil, twilioError(err)
	}
	return twilioReceipt(msg), nil
}

func (c *Client) SendWhatsApp(ctx context.Context, req WhatsAppRequest) (*Receipt, error) {
	if err := c.smsLimiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Provider: "twilio", Message: "rate limit wait aborted", Err: err}
	}
	msg, err := c.messenger.SendWhatsApp(sms.Message{
		From:             c.opts.WhatsAppFrom,
		To:               req.To,
		Body:             req.Body,
		ContentSID:       req.TemplateID,
		ContentVariables: req.TemplateParams,
		StatusCallback:   c.opts.StatusCallback,
	})
	if err != nil {
		return nil, twilioError(err)
	}
	return twilioReceipt(msg), nil
}

func twilioReceipt(msg *twilioApi.ApiV2010Message) *Receipt {
	r := &Receipt{Raw: map[string]any{}}
	if msg == nil {
		return r
	}
	if msg.Sid != nil {
		r.MessageID = *msg.Sid
	}
	if b, err := json.Marshal(msg); err == nil {
		_ = json.Unmarshal(b, &r.Raw)
	}
	return r
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return ""
}

var _ Provider = (*Client)(nil)
