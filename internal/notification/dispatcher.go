package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notify-gateway/internal/metrics"
	"notify-gateway/internal/models"
	"notify-gateway/internal/tracing"
)

const StatusScheduled = "scheduled"

// SendOptions carries the optional parts of a send request.
type SendOptions struct {
	RecipientName string         `json:"recipientName,omitempty"`
	Subject       string         `json:"subject,omitempty"`
	Message       string         `json:"message,omitempty"`
	TemplateID    string         `json:"templateId,omitempty"`
	TemplateData  map[string]any `json:"templateData,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ScheduledFor  *time.Time     `json:"scheduledFor,omitempty"`
}

// Result is the outcome of one SendNotification call.
type Result struct {
	Success        bool       `json:"success"`
	NotificationID string     `json:"notificationId,omitempty"`
	MessageID      string     `json:"messageId,omitempty"`
	Status         string     `json:"status"`
	Channel        string     `json:"channel,omitempty"`
	Recipient      string     `json:"recipient,omitempty"`
	ScheduledFor   *time.Time `json:"scheduledFor,omitempty"`
	Error          string     `json:"error,omitempty"`
}

type BulkItem struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	SendOptions
}

type BulkResult struct {
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Results    []*Result `json:"results"`
}

// StatusListener observes every record the dispatcher finishes with.
type StatusListener interface {
	NotificationUpdated(ctx context.Context, n *models.Notification)
}

type Config struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Dispatcher routes requests to channel senders and owns the retry loop.
type Dispatcher struct {
	repo       Repository
	senders    map[models.Channel]Sender
	scheduler  Scheduler
	listeners  []StatusListener
	logger     logrus.FieldLogger
	maxRetries int
	baseDelay  time.Duration
	now        func() time.Time
}

func NewDispatcher(repo Repository, scheduler Scheduler, logger logrus.FieldLogger, cfg Config, senders ...Sender) *Dispatcher {
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	d := &Dispatcher{
		repo:       repo,
		senders:    make(map[models.Channel]Sender, len(senders)),
		scheduler:  scheduler,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		now:        time.Now,
	}
	for _, s := range senders {
		d.senders[s.Channel()] = s
	}
	return d
}

// AddListener registers l for status updates. Not safe to call after dispatching starts.
func (d *Dispatcher) AddListener(l StatusListener) {
	d.listeners = append(d.listeners, l)
}

// SendNotification persists a pending record and sends it right away unless it
// is scheduled for later. A failed send is reported in the Result, never as an
// error; the error return is reserved for failing to create the record.
func (d *Dispatcher) SendNotification(ctx context.Context, accessTokenID, channel, recipient string, opts SendOptions) (*Result, error) {
	return d.attempt(ctx, accessTokenID, channel, recipient, opts, 0)
}

func (d *Dispatcher) attempt(ctx context.Context, accessTokenID, channelName, recipient string, opts SendOptions, retryCount int) (*Result, error) {
	channel, ok := models.ParseChannel(channelName)
	if !ok {
		return &Result{
			Success:   false,
			Status:    string(models.StatusFailed),
			Channel:   channelName,
			Recipient: recipient,
			Error:     fmt.Sprintf("%v: %s", ErrUnsupportedChannel, channelName),
		}, nil
	}

	now := d.now()
	n := &models.Notification{
		ID:            uuid.NewString(),
		AccessTokenID: accessTokenID,
		Channel:       channel,
		Recipient:     recipient,
		RecipientName: opts.RecipientName,
		Subject:       opts.Subject,
		Message:       opts.Message,
		TemplateID:    opts.TemplateID,
		TemplateData:  opts.TemplateData,
		Metadata:      opts.Metadata,
		Status:        models.StatusPending,
		ScheduledFor:  opts.ScheduledFor,
		RetryCount:    retryCount,
		MaxRetries:    d.maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := d.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification record: %w", err)
	}

	log := d.logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"channel":         channel,
		"retry_count":     n.RetryCount,
	})

	if n.IsScheduledAfter(now) {
		metrics.NotificationsScheduled.WithLabelValues(channel.String()).Inc()
		log.Infof("Notification scheduled for %s", n.ScheduledFor.Format(time.RFC3339))
		return &Result{
			Success:        true,
			NotificationID: n.ID,
			Status:         StatusScheduled,
			Channel:        channel.String(),
			Recipient:      recipient,
			ScheduledFor:   n.ScheduledFor,
		}, nil
	}

	sender, ok := d.senders[channel]
	if !ok {
		n.MarkFailed(d.now(), ErrUnsupportedChannel.Error(), nil)
		if err := d.repo.SaveNotification(ctx, n); err != nil {
			log.Errorf("Failed to record unsupported channel: %v", err)
		}
		metrics.NotificationsFailed.WithLabelValues(channel.String()).Inc()
		d.notify(ctx, n)
		return failedResult(n, fmt.Errorf("%w: %s", ErrUnsupportedChannel, channel)), nil
	}

	sendErr := d.send(ctx, sender, n, opts.TemplateData)
	if sendErr == nil {
		metrics.NotificationsSent.WithLabelValues(channel.String()).Inc()
		log.Infof("Notification sent, provider message id %s", n.ProviderMessageID)
		d.notify(ctx, n)
		return &Result{
			Success:        true,
			NotificationID: n.ID,
			MessageID:      n.ProviderMessageID,
			Status:         string(models.StatusSent),
			Channel:        channel.String(),
			Recipient:      recipient,
		}, nil
	}

	metrics.NotificationsFailed.WithLabelValues(channel.String()).Inc()
	log.Errorf("Dispatch error via %s: %v", channel, sendErr)

	d.notify(ctx, n)
	if !isPermanent(sendErr) && ShouldRetry(n.RetryCount, n.MaxRetries) {
		d.scheduleRetry(ctx, log, n, accessTokenID, channelName, recipient, opts)
	}
	return failedResult(n, sendErr), nil
}

func (d *Dispatcher) send(ctx context.Context, sender Sender, n *models.Notification, data map[string]any) error {
	ctx, span := tracing.Tracer().Start(ctx, "notification.send", trace.WithAttributes(
		attribute.String("notification.id", n.ID),
		attribute.String("notification.channel", n.Channel.String()),
		attribute.Int("notification.retry_count", n.RetryCount),
	))
	defer span.End()

	start := time.Now()
	err := sender.Send(ctx, n, data)
	metrics.ObserveDuration(n.Channel.String(), err == nil, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// scheduleRetry bumps the failed record's retry count and schedules a fresh
// attempt that carries the new count into its own record.
func (d *Dispatcher) scheduleRetry(ctx context.Context, log logrus.FieldLogger, n *models.Notification, accessTokenID, channelName, recipient string, opts SendOptions) {
	n.RetryCount++
	n.UpdatedAt = d.now()
	if err := d.repo.SaveNotification(ctx, n); err != nil {
		log.Errorf("Failed to persist retry count: %v", err)
	}

	retryCount := n.RetryCount
	delay := Backoff(retryCount, d.baseDelay)
	retryCtx := context.WithoutCancel(ctx)
	err := d.scheduler.Schedule(delay, func() {
		if _, err := d.attempt(retryCtx, accessTokenID, channelName, recipient, opts, retryCount); err != nil {
			d.logger.WithField("previous_notification_id", n.ID).Errorf("Retry %d failed to start: %v", retryCount, err)
		}
	})
	if err != nil {
		log.Errorf("Failed to schedule retry %d: %v", retryCount, err)
		return
	}
	metrics.NotificationsRetried.WithLabelValues(n.Channel.String()).Inc()
	log.Infof("Retry %d/%d scheduled in %s", retryCount, n.MaxRetries, delay)
}

func (d *Dispatcher) notify(ctx context.Context, n *models.Notification) {
	for _, l := range d.listeners {
		snapshot := *n
		l.NotificationUpdated(ctx, &snapshot)
	}
}

func failedResult(n *models.Notification, err error) *Result {
	return &Result{
		Success:        false,
		NotificationID: n.ID,
		Status:         string(models.StatusFailed),
		Channel:        n.Channel.String(),
		Recipient:      n.Recipient,
		Error:          err.Error(),
	}
}

// SendBulkNotifications sends items one after another. A failing item is
// recorded in its result and never stops the rest.
func (d *Dispatcher) SendBulkNotifications(ctx context.Context, accessTokenID string, items []BulkItem) *BulkResult {
	out := &BulkResult{Total: len(items), Results: make([]*Result, 0, len(items))}
	for _, item := range items {
		res, err := d.SendNotification(ctx, accessTokenID, item.Channel, item.Recipient, item.SendOptions)
		if err != nil {
			res = &Result{Success: false, Status: string(models.StatusFailed), Channel: item.Channel, Recipient: item.Recipient, Error: err.Error()}
		}
		if res.Success {
			out.Successful++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, res)
	}
	return out
}

// GetNotification returns a stored record.
func (d *Dispatcher) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	return d.repo.GetNotification(ctx, id)
}
