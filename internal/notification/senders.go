package notification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/sirupsen/logrus"

	"notify-gateway/internal/models"
	"notify-gateway/internal/providers"
	"notify-gateway/internal/templates"
	"notify-gateway/pkg/sms"
)

const (
	metaReplyTo            = "replyTo"
	metaWhatsAppTemplateID = "whatsappTemplateId"
)

// Repository persists notification records. *db.DB satisfies it.
type Repository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	SaveNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
}

type Renderer interface {
	Render(ctx context.Context, id string, data map[string]any) (*templates.Rendered, error)
}

// Sender delivers a pending record over one channel and records the outcome on it.
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, n *models.Notification, data map[string]any) error
}

// base holds what every channel sender shares: template resolution and
// writing the attempt's outcome back, once.
type base struct {
	repo     Repository
	renderer Renderer
	logger   logrus.FieldLogger
	now      func() time.Time
}

// resolveContent renders the record's template into it. Any lookup or render
// failure leaves the record's own subject and message in place.
func (b *base) resolveContent(ctx context.Context, n *models.Notification, data map[string]any) {
	if n.TemplateID == "" || b.renderer == nil {
		return
	}
	if data == nil {
		data = n.TemplateData
	}
	out, err := b.renderer.Render(ctx, n.TemplateID, data)
	if err != nil {
		log := b.logger.WithField("notification_id", n.ID)
		if errors.Is(err, templates.ErrTemplateNotFound) || errors.Is(err, templates.ErrTemplateInactive) {
			log.Warnf("Template %s unusable, sending raw message: %v", n.TemplateID, err)
		} else {
			log.Errorf("Template %s lookup failed, sending raw message: %v", n.TemplateID, err)
		}
		return
	}
	if out.Subject != "" {
		n.Subject = out.Subject
	}
	n.Message = out.Body
}

func (b *base) finish(ctx context.Context, n *models.Notification, receipt *providers.Receipt, sendErr error) error {
	now := b.now()
	if sendErr == nil {
		n.MarkSent(now, receipt.MessageID, receipt.Raw)
	} else {
		n.MarkFailed(now, sendErr.Error(), errorSnapshot(sendErr))
	}
	// The provider outcome stands even if recording it fails; a delivered
	// message must not be retried.
	if err := b.repo.SaveNotification(ctx, n); err != nil {
		b.logger.WithFields(logrus.Fields{
			"notification_id": n.ID,
			"status":          n.Status,
		}).Errorf("Failed to record send attempt: %v", err)
	}
	return sendErr
}

func errorSnapshot(err error) map[string]any {
	var perr *providers.ProviderError
	if errors.As(err, &perr) {
		return perr.Snapshot()
	}
	return map[string]any{"message": err.Error()}
}

type EmailSender struct {
	base
	provider providers.Provider
}

type SMSSender struct {
	base
	provider providers.Provider
}

type WhatsAppSender struct {
	base
	provider providers.Provider
}

// NewSenders builds the email, SMS and WhatsApp senders over one provider.
func NewSenders(repo Repository, renderer Renderer, provider providers.Provider, logger logrus.FieldLogger) []Sender {
	b := base{repo: repo, renderer: renderer, logger: logger, now: time.Now}
	return []Sender{
		&EmailSender{base: b, provider: provider},
		&SMSSender{base: b, provider: provider},
		&WhatsAppSender{base: b, provider: provider},
	}
}

func (s *EmailSender) Channel() models.Channel { return models.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, n *models.Notification, data map[string]any) error {
	if _, err := mail.ParseAddress(n.Recipient); err != nil {
		return s.finish(ctx, n, nil, fmt.Errorf("%w: %q is not an email address", ErrInvalidRecipient, n.Recipient))
	}
	s.resolveContent(ctx, n, data)
	receipt, err := s.provider.SendEmail(ctx, providers.EmailRequest{
		To:       n.Recipient,
		ToName:   n.RecipientName,
		Subject:  n.Subject,
		HTMLBody: n.Message,
		ReplyTo:  n.MetadataString(metaReplyTo),
	})
	return s.finish(ctx, n, receipt, err)
}

func (s *SMSSender) Channel() models.Channel { return models.ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, n *models.Notification, data map[string]any) error {
	if !sms.IsE164(n.Recipient) {
		return s.finish(ctx, n, nil, fmt.Errorf("%w: %q is not an E.164 phone number", ErrInvalidRecipient, n.Recipient))
	}
	s.resolveContent(ctx, n, data)
	receipt, err := s.provider.SendSMS(ctx, providers.SMSRequest{To: n.Recipient, Body: n.Message})
	return s.finish(ctx, n, receipt, err)
}

func (s *WhatsAppSender) Channel() models.Channel { return models.ChannelWhatsApp }

func (s *WhatsAppSender) Send(ctx context.Context, n *models.Notification, data map[string]any) error {
	req := providers.WhatsAppRequest{To: n.Recipient}
	if id := n.MetadataString(metaWhatsAppTemplateID); id != "" {
		req.TemplateID = id
		req.TemplateParams = data
		if req.TemplateParams == nil {
			req.TemplateParams = n.TemplateData
		}
	} else {
		s.resolveContent(ctx, n, data)
		req.Body = n.Message
	}
	receipt, err := s.provider.SendWhatsApp(ctx, req)
	return s.finish(ctx, n, receipt, err)
}
