package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"notify-gateway/internal/models"
	"notify-gateway/internal/utils"
	"notify-gateway/pkg/telegram"
)

// Messenger posts an alert text. *telegram.Client satisfies it.
type Messenger interface {
	Send(ctx context.Context, text string) error
}

// TelegramAlerter tells operators when a notification has used up its retries.
type TelegramAlerter struct {
	messenger Messenger
	logger    logrus.FieldLogger
	wg        sync.WaitGroup
}

// NewTelegramAlerter connects the bot, retrying a few times while Telegram is unreachable.
func NewTelegramAlerter(token string, chatID int64, logger logrus.FieldLogger) (*TelegramAlerter, error) {
	var client *telegram.Client
	err := utils.Retry(context.Background(), logger, 3, time.Second, func(context.Context) error {
		c, err := telegram.New(token, chatID)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewAlerter(client, logger), nil
}

func NewAlerter(messenger Messenger, logger logrus.FieldLogger) *TelegramAlerter {
	return &TelegramAlerter{messenger: messenger, logger: logger}
}

func (a *TelegramAlerter) NotificationUpdated(ctx context.Context, n *models.Notification) {
	if n.Status != models.StatusFailed || n.RetryCount < n.MaxRetries {
		return
	}
	text := fmt.Sprintf(
		"*Notification delivery failed*\n"+
			"*ID:* %s\n"+
			"*Channel:* %s\n"+
			"*Recipient:* %s\n"+
			"*Attempts:* %d\n"+
			"*Error:* %s",
		n.ID, n.Channel, n.Recipient, n.RetryCount+1, n.ErrorMessage,
	)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		err := utils.Retry(sendCtx, a.logger, 3, time.Second, func(ctx context.Context) error {
			return a.messenger.Send(ctx, text)
		})
		if err != nil {
			a.logger.WithField("notification_id", n.ID).Errorf("Failed to send Telegram alert: %v", err)
		}
	}()
}

// Wait blocks until in-flight alerts finish.
func (a *TelegramAlerter) Wait() {
	a.wg.Wait()
}
