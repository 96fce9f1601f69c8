package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/propagation"

	"notify-gateway/internal/config"
	"notify-gateway/internal/models"
	"notify-gateway/internal/notification"
)

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sender is satisfied by *notification.Dispatcher.
type Sender interface {
	SendNotification(ctx context.Context, accessTokenID, channel, recipient string, opts notification.SendOptions) (*notification.Result, error)
}

// Consumer turns notification requests published on Kafka into dispatches.
type Consumer struct {
	reader Reader
	sender Sender
	logger logrus.FieldLogger
}

func NewConsumer(cfg config.KafkaConfig, sender Sender, logger logrus.FieldLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.Broker},
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	return NewConsumerWithReader(r, sender, logger)
}

func NewConsumerWithReader(reader Reader, sender Sender, logger logrus.FieldLogger) *Consumer {
	return &Consumer{reader: reader, sender: sender, logger: logger}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Info("Kafka consumer started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			if err := c.Handle(ctx, msg); err != nil {
				c.logger.WithField("offset", msg.Offset).Errorf("Dropping message: %v", err)
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Errorf("Commit failed at offset %d: %v", msg.Offset, err)
			}
		}
	}()
}

// Handle decodes one request and dispatches it. Failed sends are retried by
// the dispatcher, so only undecodable or invalid messages return an error.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	ctx = propagation.TraceContext{}.Extract(ctx, headerCarrier{headers: &msg.Headers})

	var task models.Task
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	if task.Channel == "" || task.Recipient == "" {
		return errors.New("invalid message: missing channel or recipient")
	}

	res, err := c.sender.SendNotification(ctx, task.AccessTokenID, task.Channel, task.Recipient, notification.SendOptions{
		RecipientName: task.RecipientName,
		Subject:       task.Subject,
		Message:       task.Message,
		TemplateID:    task.TemplateID,
		TemplateData:  task.TemplateData,
		Metadata:      task.Metadata,
		ScheduledFor:  task.ScheduledFor,
	})
	if err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"request_id":      task.RequestID,
		"notification_id": res.NotificationID,
		"status":          res.Status,
	}).Info("Processed Kafka message")
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// headerCarrier adapts kafka-go headers to a TextMapCarrier.
type headerCarrier struct {
	headers *[]kafka.Header
}

func (h headerCarrier) Get(key string) string {
	for _, hdr := range *h.headers {
		if hdr.Key == key {
			return string(hdr.Value)
		}
	}
	return ""
}

func (h headerCarrier) Set(key, value string) {
	for i, hdr := range *h.headers {
		if hdr.Key == key {
			(*h.headers)[i].Value = []byte(value)
			return
		}
	}
	*h.headers = append(*h.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*h.headers))
	for _, hdr := range *h.headers {
		keys = append(keys, hdr.Key)
	}
	return keys
}
