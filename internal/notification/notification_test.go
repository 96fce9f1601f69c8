package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"notify-gateway/internal/db"
	"notify-gateway/internal/logging"
	"notify-gateway/internal/models"
	"notify-gateway/internal/providers"
	"notify-gateway/internal/templates"
)

type fakeRepo struct {
	mu        sync.Mutex
	records   map[string]*models.Notification
	order     []string
	saves     map[string]int
	failFor   string
	failSaves bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[string]*models.Notification{}, saves: map[string]int{}}
}

func (r *fakeRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor != "" && n.Recipient == r.failFor {
		return errors.New("insert failed")
	}
	cp := *n
	r.records[n.ID] = &cp
	r.order = append(r.order, n.ID)
	return nil
}

func (r *fakeRepo) SaveNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves[n.ID]++
	if r.failSaves {
		return errors.New("update failed")
	}
	cp := *n
	r.records[n.ID] = &cp
	return nil
}

func (r *fakeRepo) GetNotification(_ context.Context, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeRepo) all() []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Notification, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.records[id]
		out = append(out, &cp)
	}
	return out
}

// fakeScheduler queues tasks so tests can drive the retry chain step by step.
type fakeScheduler struct {
	delays []time.Duration
	tasks  []func()
	err    error
}

func (s *fakeScheduler) Schedule(delay time.Duration, task func()) error {
	if s.err != nil {
		return s.err
	}
	s.delays = append(s.delays, delay)
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *fakeScheduler) drain() {
	for len(s.tasks) > 0 {
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		task()
	}
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) SendEmail(ctx context.Context, req providers.EmailRequest) (*providers.Receipt, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*providers.Receipt)
	return r, args.Error(1)
}

func (m *mockProvider) SendSMS(ctx context.Context, req providers.SMSRequest) (*providers.Receipt, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*providers.Receipt)
	return r, args.Error(1)
}

func (m *mockProvider) SendWhatsApp(ctx context.Context, req providers.WhatsAppRequest) (*providers.Receipt, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*providers.Receipt)
	return r, args.Error(1)
}

type stubRenderer map[string]*templates.Rendered

func (s stubRenderer) Render(_ context.Context, id string, data map[string]any) (*templates.Rendered, error) {
	switch id {
	case "inactive":
		return nil, templates.ErrTemplateInactive
	case "broken":
		return nil, errors.New("db down")
	}
	out, ok := s[id]
	if !ok {
		return nil, templates.ErrTemplateNotFound
	}
	return &templates.Rendered{
		Subject: out.Subject,
		Body:    templates.Substitute(out.Body, data),
	}, nil
}

type recordingListener struct {
	mu      sync.Mutex
	updates []models.Notification
}

func (l *recordingListener) NotificationUpdated(_ context.Context, n *models.Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, *n)
}

type harness struct {
	repo      *fakeRepo
	scheduler *fakeScheduler
	provider  *mockProvider
	listener  *recordingListener
	d         *Dispatcher
}

func newHarness(maxRetries int) *harness {
	h := &harness{
		repo:      newFakeRepo(),
		scheduler: &fakeScheduler{},
		provider:  &mockProvider{},
		listener:  &recordingListener{},
	}
	logger := logging.Discard()
	renderer := stubRenderer{"welcome": {Subject: "Welcome", Body: "<p>Hi {{name}}</p>"}}
	h.d = NewDispatcher(h.repo, h.scheduler, logger,
		Config{MaxRetries: maxRetries, RetryBaseDelay: time.Second},
		NewSenders(h.repo, renderer, h.provider, logger)...)
	h.d.AddListener(h.listener)
	return h
}

func receipt(id string) *providers.Receipt {
	return &providers.Receipt{MessageID: id, Raw: map[string]any{"sid": id}}
}

func providerErr() error {
	return &providers.ProviderError{Provider: "twilio", Code: 20500, Status: 500, Message: "internal error"}
}
