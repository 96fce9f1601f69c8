package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notify-gateway/internal/config"
	"notify-gateway/internal/db"
	"notify-gateway/internal/logging"
	"notify-gateway/internal/models"
	"notify-gateway/internal/notification"
	"notify-gateway/internal/otp"
	"notify-gateway/internal/realtime"
)

const testSecret = "test-secret"

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) SendNotification(ctx context.Context, tokenID, channel, recipient string, opts notification.SendOptions) (*notification.Result, error) {
	args := m.Called(ctx, tokenID, channel, recipient, opts)
	res, _ := args.Get(0).(*notification.Result)
	return res, args.Error(1)
}

func (m *mockNotifications) SendBulkNotifications(ctx context.Context, tokenID string, items []notification.BulkItem) *notification.BulkResult {
	args := m.Called(ctx, tokenID, items)
	return args.Get(0).(*notification.BulkResult)
}

func (m *mockNotifications) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

type mockOTP struct{ mock.Mock }

func (m *mockOTP) SendOTPViaEmail(ctx context.Context, tokenID, email string, opts otp.SendOptions) (*otp.SendResult, error) {
	args := m.Called(ctx, tokenID, email, opts)
	res, _ := args.Get(0).(*otp.SendResult)
	return res, args.Error(1)
}

func (m *mockOTP) SendOTPViaSMS(ctx context.Context, tokenID, phone string, opts otp.SendOptions) (*otp.SendResult, error) {
	args := m.Called(ctx, tokenID, phone, opts)
	res, _ := args.Get(0).(*otp.SendResult)
	return res, args.Error(1)
}

func (m *mockOTP) SendOTPViaBoth(ctx context.Context, tokenID, email, phone string, opts otp.SendOptions) (*otp.BothResult, error) {
	args := m.Called(ctx, tokenID, email, phone, opts)
	res, _ := args.Get(0).(*otp.BothResult)
	return res, args.Error(1)
}

func (m *mockOTP) VerifyOTP(ctx context.Context, identifier, code string) (otp.VerifyResult, error) {
	args := m.Called(ctx, identifier, code)
	return args.Get(0).(otp.VerifyResult), args.Error(1)
}

func (m *mockOTP) ClearOTP(ctx context.Context, identifier string) error {
	return m.Called(ctx, identifier).Error(0)
}

func (m *mockOTP) GetOTPInfo(ctx context.Context, identifier string) (*otp.Info, error) {
	args := m.Called(ctx, identifier)
	info, _ := args.Get(0).(*otp.Info)
	return info, args.Error(1)
}

type fakeStore struct {
	mu          sync.Mutex
	tokens      map[string]*models.AccessToken
	blacklisted map[string]bool
	listed      []*models.Notification
}

func (s *fakeStore) GetAccessToken(_ context.Context, id string) (*models.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return t, nil
}

func (s *fakeStore) IsIPBlacklisted(_ context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blacklisted[ip], nil
}

func (s *fakeStore) ListNotificationsByToken(_ context.Context, tokenID string, limit, offset int) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range s.listed {
		if n.AccessTokenID == tokenID {
			out = append(out, n)
		}
	}
	return out, nil
}

type testServer struct {
	router        *gin.Engine
	notifications *mockNotifications
	otp           *mockOTP
	store         *fakeStore
	hub           *realtime.Hub
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	logger := logging.Discard()
	ts := &testServer{
		notifications: &mockNotifications{},
		otp:           &mockOTP{},
		store: &fakeStore{
			tokens: map[string]*models.AccessToken{
				"tok-1":    {ID: "tok-1", IsActive: true, AllowedChannels: []string{"email", "sms"}},
				"tok-off":  {ID: "tok-off", IsActive: false},
				"tok-slow": {ID: "tok-slow", IsActive: true, RateLimitPerMinute: 1},
			},
			blacklisted: map[string]bool{},
		},
		hub: realtime.NewHub(logger),
	}
	cfg := config.Config{
		API:       config.APIConfig{BasePath: "/api/v1"},
		RateLimit: config.RateLimitConfig{DefaultPerMinute: 100},
		JWTSecret: testSecret,
	}
	h := NewHandler(ts.notifications, ts.otp, ts.store, ts.hub, logger)
	ts.router = NewRouter(h, cfg, logger)
	return ts
}

func signToken(t *testing.T, subject, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (ts *testServer) do(t *testing.T, method, path, tokenID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tokenID != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, tokenID, testSecret))
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	ts := newTestServer()
	w := ts.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuth(t *testing.T) {
	ts := newTestServer()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, "tok-1", "other-secret"), http.StatusUnauthorized},
		{"unknown token", "Bearer " + signToken(t, "tok-x", testSecret), http.StatusUnauthorized},
		{"inactive token", "Bearer " + signToken(t, "tok-off", testSecret), http.StatusUnauthorized},
		{"not a jwt", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/otp/ana@example.com", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	ts.otp.AssertNotCalled(t, "GetOTPInfo", mock.Anything, mock.Anything)
}

func TestBlacklistedIP(t *testing.T) {
	ts := newTestServer()
	ts.store.blacklisted["192.0.2.1"] = true

	w := ts.do(t, http.MethodGet, "/api/v1/otp/ana@example.com", "tok-1", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer()
	ts.otp.On("GetOTPInfo", mock.Anything, "a@example.com").Return(nil, nil)

	first := ts.do(t, http.MethodGet, "/api/v1/otp/a@example.com", "tok-slow", "")
	second := ts.do(t, http.MethodGet, "/api/v1/otp/a@example.com", "tok-slow", "")

	assert.Equal(t, http.StatusNotFound, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestSendNotification(t *testing.T) {
	ts := newTestServer()
	ts.notifications.On("SendNotification", mock.Anything, "tok-1", "email", "ana@example.com", notification.SendOptions{
		Subject: "Hi", Message: "<p>Hello</p>",
	}).Return(&notification.Result{Success: true, NotificationID: "n-1", Status: "sent", Channel: "email"}, nil).Once()

	w := ts.do(t, http.MethodPost, "/api/v1/notifications", "tok-1",
		`{"channel":"email","recipient":"ana@example.com","subject":"Hi","message":"<p>Hello</p>"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"notificationId":"n-1"`)
	ts.notifications.AssertExpectations(t)
}

func TestSendNotification_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		result *notification.Result
		want   int
	}{
		{"scheduled", &notification.Result{Success: true, Status: notification.StatusScheduled}, http.StatusAccepted},
		{"provider failure", &notification.Result{Success: false, Status: "failed", Error: "boom"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.notifications.On("SendNotification", mock.Anything, "tok-1", "sms", "+14155552671", mock.Anything).
				Return(tt.result, nil).Once()

			w := ts.do(t, http.MethodPost, "/api/v1/notifications", "tok-1",
				`{"channel":"sms","recipient":"+14155552671","message":"x"}`)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSendNotification_Rejected(t *testing.T) {
	ts := newTestServer()

	forbidden := ts.do(t, http.MethodPost, "/api/v1/notifications", "tok-1",
		`{"channel":"whatsapp","recipient":"+14155552671","message":"x"}`)
	invalid := ts.do(t, http.MethodPost, "/api/v1/notifications", "tok-1", `{"channel":"email"}`)

	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
	ts.notifications.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendBulkNotifications(t *testing.T) {
	ts := newTestServer()
	ts.notifications.On("SendBulkNotifications", mock.Anything, "tok-1", mock.MatchedBy(func(items []notification.BulkItem) bool {
		return len(items) == 2 && items[1].Recipient == "+14155552671" && items[1].Message == "b"
	})).Return(&notification.BulkResult{Total: 2, Successful: 1, Failed: 1}).Once()

	w := ts.do(t, http.MethodPost, "/api/v1/notifications/bulk", "tok-1",
		`{"notifications":[{"channel":"email","recipient":"a@example.com","message":"a"},{"channel":"sms","recipient":"+14155552671","message":"b"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"successful":1`)
	ts.notifications.AssertExpectations(t)
}

func TestSendBulkNotifications_TooMany(t *testing.T) {
	ts := newTestServer()
	item := `{"channel":"email","recipient":"a@example.com","message":"a"}`
	items := make([]string, maxBulkItems+1)
	for i := range items {
		items[i] = item
	}

	w := ts.do(t, http.MethodPost, "/api/v1/notifications/bulk", "tok-1",
		`{"notifications":[`+strings.Join(items, ",")+`]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNotification(t *testing.T) {
	ts := newTestServer()
	ts.notifications.On("GetNotification", mock.Anything, "mine").
		Return(&models.Notification{ID: "mine", AccessTokenID: "tok-1", Status: models.StatusSent}, nil)
	ts.notifications.On("GetNotification", mock.Anything, "theirs").
		Return(&models.Notification{ID: "theirs", AccessTokenID: "tok-2"}, nil)
	ts.notifications.On("GetNotification", mock.Anything, "gone").
		Return(nil, db.ErrNotFound)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/notifications/mine", "tok-1", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/notifications/theirs", "tok-1", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/notifications/gone", "tok-1", "").Code)
}

func TestListNotifications(t *testing.T) {
	ts := newTestServer()
	ts.store.listed = []*models.Notification{
		{ID: "a", AccessTokenID: "tok-1"},
		{ID: "b", AccessTokenID: "tok-2"},
	}

	w := ts.do(t, http.MethodGet, "/api/v1/notifications?limit=10", "tok-1", "")
	bad := ts.do(t, http.MethodGet, "/api/v1/notifications?limit=0", "tok-1", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"a"`)
	assert.NotContains(t, w.Body.String(), `"id":"b"`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestSendOTP(t *testing.T) {
	ts := newTestServer()
	ts.otp.On("SendOTPViaEmail", mock.Anything, "tok-1", "ana@example.com", otp.SendOptions{TTL: 5 * time.Minute}).
		Return(&otp.SendResult{Success: true, Channel: "email"}, nil).Once()
	ts.otp.On("SendOTPViaSMS", mock.Anything, "tok-1", "+14155552671", otp.SendOptions{}).
		Return(&otp.SendResult{Success: false, Channel: "sms", Error: "down"}, nil).Once()

	email := ts.do(t, http.MethodPost, "/api/v1/otp/email", "tok-1", `{"email":"ana@example.com","ttlMinutes":5}`)
	sms := ts.do(t, http.MethodPost, "/api/v1/otp/sms", "tok-1", `{"phone":"+14155552671"}`)
	bad := ts.do(t, http.MethodPost, "/api/v1/otp/email", "tok-1", `{"email":"not-an-email"}`)

	assert.Equal(t, http.StatusOK, email.Code)
	assert.Equal(t, http.StatusBadGateway, sms.Code)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	ts.otp.AssertExpectations(t)
}

func TestSendOTPBoth(t *testing.T) {
	ts := newTestServer()
	ts.otp.On("SendOTPViaBoth", mock.Anything, "tok-1", "ana@example.com", "+14155552671", otp.SendOptions{}).
		Return(&otp.BothResult{Success: true, Email: &otp.SendResult{Success: true}, SMS: &otp.SendResult{Success: true}}, nil).Once()

	w := ts.do(t, http.MethodPost, "/api/v1/otp/both", "tok-1", `{"email":"ana@example.com","phone":"+14155552671"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	ts.otp.AssertExpectations(t)
}

func TestVerifyOTP(t *testing.T) {
	ts := newTestServer()
	ts.otp.On("VerifyOTP", mock.Anything, "ana@example.com", "123456").
		Return(otp.VerifyResult{Valid: true, Code: otp.CodeVerified}, nil).Once()
	ts.otp.On("VerifyOTP", mock.Anything, "ana@example.com", "000000").
		Return(otp.VerifyResult{Valid: false, Code: otp.CodeInvalid, RemainingAttempts: 3}, nil).Once()

	ok := ts.do(t, http.MethodPost, "/api/v1/otp/verify", "tok-1", `{"identifier":"ana@example.com","otp":"123456"}`)
	wrong := ts.do(t, http.MethodPost, "/api/v1/otp/verify", "tok-1", `{"identifier":"ana@example.com","otp":"000000"}`)

	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Contains(t, wrong.Body.String(), `"remainingAttempts":3`)
}

func TestOTPInfoAndClear(t *testing.T) {
	ts := newTestServer()
	ts.otp.On("GetOTPInfo", mock.Anything, "ana@example.com").
		Return(&otp.Info{Identifier: "ana@example.com", MaxAttempts: 5}, nil).Once()
	ts.otp.On("GetOTPInfo", mock.Anything, "nobody@example.com").Return(nil, nil).Once()
	ts.otp.On("ClearOTP", mock.Anything, "ana@example.com").Return(nil).Once()

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/otp/ana@example.com", "tok-1", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/otp/nobody@example.com", "tok-1", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, "/api/v1/otp/ana@example.com", "tok-1", "").Code)
	ts.otp.AssertExpectations(t)
}

func TestStreamNotifications(t *testing.T) {
	ts := newTestServer()
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/notifications?token=" + signToken(t, "tok-1", testSecret)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.hub.Count("tok-1") == 1 }, time.Second, 10*time.Millisecond)
	ts.hub.NotificationUpdated(context.Background(), &models.Notification{
		ID: "n-1", AccessTokenID: "tok-1", Channel: models.ChannelEmail, Status: models.StatusSent,
	})

	var update realtime.StatusUpdate
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "n-1", update.NotificationID)
	assert.Equal(t, "sent", update.Status)
}
