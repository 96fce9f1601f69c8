package otp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"notify-gateway/internal/metrics"
	"notify-gateway/internal/models"
	"notify-gateway/internal/notification"
)

// Notifier dispatches the message carrying a code. *notification.Dispatcher satisfies it.
type Notifier interface {
	SendNotification(ctx context.Context, accessTokenID, channel, recipient string, opts notification.SendOptions) (*notification.Result, error)
}

type ServiceConfig struct {
	Length     int
	TTL        time.Duration
	ExposeCode bool
	AppName    string
}

// SendOptions customises one issuance. Zero values fall back to the service defaults.
type SendOptions struct {
	TTL           time.Duration `json:"ttl,omitempty"`
	TemplateID    string        `json:"templateId,omitempty"`
	RecipientName string        `json:"recipientName,omitempty"`
}

type SendResult struct {
	Success        bool      `json:"success"`
	Channel        string    `json:"channel"`
	Recipient      string    `json:"recipient"`
	NotificationID string    `json:"notificationId,omitempty"`
	MessageID      string    `json:"messageId,omitempty"`
	Status         string    `json:"status,omitempty"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Code           string    `json:"code,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// BothResult reports each channel on its own; Success means both were accepted.
type BothResult struct {
	Success bool        `json:"success"`
	Email   *SendResult `json:"email"`
	SMS     *SendResult `json:"sms"`
	Code    string      `json:"code,omitempty"`
}

type Service struct {
	store    *Store
	notifier Notifier
	cfg      ServiceConfig
	logger   logrus.FieldLogger
}

func NewService(store *Store, notifier Notifier, cfg ServiceConfig, logger logrus.FieldLogger) *Service {
	if cfg.Length <= 0 {
		cfg.Length = DefaultLength
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Service{store: store, notifier: notifier, cfg: cfg, logger: logger}
}

func (s *Service) SendOTPViaEmail(ctx context.Context, accessTokenID, email string, opts SendOptions) (*SendResult, error) {
	return s.issue(ctx, accessTokenID, models.ChannelEmail, email, opts)
}

func (s *Service) SendOTPViaSMS(ctx context.Context, accessTokenID, phone string, opts SendOptions) (*SendResult, error) {
	return s.issue(ctx, accessTokenID, models.ChannelSMS, phone, opts)
}

func (s *Service) issue(ctx context.Context, accessTokenID string, channel models.Channel, recipient string, opts SendOptions) (*SendResult, error) {
	code, err := Generate(s.cfg.Length)
	if err != nil {
		return nil, err
	}
	ttl := s.ttl(opts)
	if err := s.store.Save(ctx, recipient, code, ttl); err != nil {
		return nil, fmt.Errorf("failed to store otp for %s: %w", channel, err)
	}
	return s.deliver(ctx, accessTokenID, channel, recipient, code, ttl, opts)
}

// SendOTPViaBoth issues one code, stores it under the email and the phone
// separately and sends both messages concurrently.
func (s *Service) SendOTPViaBoth(ctx context.Context, accessTokenID, email, phone string, opts SendOptions) (*BothResult, error) {
	code, err := Generate(s.cfg.Length)
	if err != nil {
		return nil, err
	}
	ttl := s.ttl(opts)
	for _, id := range []string{email, phone} {
		if err := s.store.Save(ctx, id, code, ttl); err != nil {
			return nil, fmt.Errorf("failed to store otp for %s: %w", id, err)
		}
	}

	out := &BothResult{}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Email = s.deliverOrFail(ctx, accessTokenID, models.ChannelEmail, email, code, ttl, opts)
	}()
	go func() {
		defer wg.Done()
		out.SMS = s.deliverOrFail(ctx, accessTokenID, models.ChannelSMS, phone, code, ttl, opts)
	}()
	wg.Wait()

	out.Success = out.Email.Success && out.SMS.Success
	if s.cfg.ExposeCode {
		out.Code = code
	}
	return out, nil
}

func (s *Service) deliverOrFail(ctx context.Context, accessTokenID string, channel models.Channel, recipient, code string, ttl time.Duration, opts SendOptions) *SendResult {
	res, err := s.deliver(ctx, accessTokenID, channel, recipient, code, ttl, opts)
	if err != nil {
		return &SendResult{Success: false, Channel: channel.String(), Recipient: recipient, Error: err.Error()}
	}
	return res
}

func (s *Service) deliver(ctx context.Context, accessTokenID string, channel models.Channel, recipient, code string, ttl time.Duration, opts SendOptions) (*SendResult, error) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	sendOpts := notification.SendOptions{
		RecipientName: opts.RecipientName,
		TemplateID:    opts.TemplateID,
		TemplateData: map[string]any{
			"otp":              code,
			"expiresInMinutes": minutes,
			"appName":          s.cfg.AppName,
		},
		Metadata: map[string]any{"purpose": "otp"},
	}
	switch channel {
	case models.ChannelEmail:
		sendOpts.Subject = fmt.Sprintf("Your %s verification code", s.cfg.AppName)
		sendOpts.Message = fmt.Sprintf(
			"<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes. Do not share it with anyone.</p>",
			code, minutes)
	default:
		sendOpts.Message = fmt.Sprintf("%s: your verification code is %s. It expires in %d minutes.", s.cfg.AppName, code, minutes)
	}

	res, err := s.notifier.SendNotification(ctx, accessTokenID, channel.String(), recipient, sendOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch otp via %s: %w", channel, err)
	}
	if res.Success {
		metrics.OTPIssued.WithLabelValues(channel.String()).Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"channel":         channel,
		"notification_id": res.NotificationID,
		"status":          res.Status,
	}).Info("OTP issued")

	out := &SendResult{
		Success:        res.Success,
		Channel:        channel.String(),
		Recipient:      recipient,
		NotificationID: res.NotificationID,
		MessageID:      res.MessageID,
		Status:         res.Status,
		ExpiresAt:      s.store.now().Add(ttl),
		Error:          res.Error,
	}
	if s.cfg.ExposeCode {
		out.Code = code
	}
	return out, nil
}

func (s *Service) ttl(opts SendOptions) time.Duration {
	if opts.TTL > 0 {
		return opts.TTL
	}
	return s.cfg.TTL
}

func (s *Service) VerifyOTP(ctx context.Context, identifier, code string) (VerifyResult, error) {
	res, err := s.store.Verify(ctx, identifier, code)
	if err != nil {
		return VerifyResult{}, err
	}
	metrics.OTPVerifications.WithLabelValues(res.Code).Inc()
	return res, nil
}

func (s *Service) ClearOTP(ctx context.Context, identifier string) error {
	return s.store.Clear(ctx, identifier)
}

func (s *Service) GetOTPInfo(ctx context.Context, identifier string) (*Info, error) {
	return s.store.Info(ctx, identifier)
}
