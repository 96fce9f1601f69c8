package email

import (
	"errors"
	"fmt"
	"net/mail"

	"gopkg.in/gomail.v2"
)

var ErrInvalidAddress = errors.New("invalid email address")

// Dialer delivers composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Message is a single outbound email.
type Message struct {
	To        string
	ToName    string
	Subject   string
	HTMLBody  string
	ReplyTo   string
	MessageID string
}

// Mailer sends HTML email through an SMTP relay.
type Mailer struct {
	dialer   Dialer
	from     string
	fromName string
}

func NewMailer(host string, port int, username, password, from, fromName string) *Mailer {
	return NewMailerWithDialer(gomail.NewDialer(host, port, username, password), from, fromName)
}

func NewMailerWithDialer(dialer Dialer, from, fromName string) *Mailer {
	return &Mailer{dialer: dialer, from: from, fromName: fromName}
}

// Send composes msg and hands it to the SMTP dialer.
func (m *Mailer) Send(msg Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, msg.To)
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.from, m.fromName)
	if msg.ToName != "" {
		gm.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		gm.SetHeader("To", msg.To)
	}
	if msg.ReplyTo != "" {
		gm.SetHeader("Reply-To", msg.ReplyTo)
	}
	if msg.MessageID != "" {
		gm.SetHeader("Message-ID", "<"+msg.MessageID+">")
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}
