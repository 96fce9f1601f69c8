package api

import (
	"context"

	"github.com/sirupsen/logrus"

	"notify-gateway/internal/models"
	"notify-gateway/internal/notification"
	"notify-gateway/internal/otp"
	"notify-gateway/internal/realtime"
)

// Notifications is satisfied by *notification.Dispatcher.
type Notifications interface {
	SendNotification(ctx context.Context, accessTokenID, channel, recipient string, opts notification.SendOptions) (*notification.Result, error)
	SendBulkNotifications(ctx context.Context, accessTokenID string, items []notification.BulkItem) *notification.BulkResult
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
}

// OTP is satisfied by *otp.Service.
type OTP interface {
	SendOTPViaEmail(ctx context.Context, accessTokenID, email string, opts otp.SendOptions) (*otp.SendResult, error)
	SendOTPViaSMS(ctx context.Context, accessTokenID, phone string, opts otp.SendOptions) (*otp.SendResult, error)
	SendOTPViaBoth(ctx context.Context, accessTokenID, email, phone string, opts otp.SendOptions) (*otp.BothResult, error)
	VerifyOTP(ctx context.Context, identifier, code string) (otp.VerifyResult, error)
	ClearOTP(ctx context.Context, identifier string) error
	GetOTPInfo(ctx context.Context, identifier string) (*otp.Info, error)
}

// Store is the persistence the HTTP layer reads directly. *db.DB satisfies it.
type Store interface {
	GetAccessToken(ctx context.Context, id string) (*models.AccessToken, error)
	IsIPBlacklisted(ctx context.Context, ip string) (bool, error)
	ListNotificationsByToken(ctx context.Context, tokenID string, limit, offset int) ([]*models.Notification, error)
}

type Handler struct {
	notifications Notifications
	otp           OTP
	store         Store
	hub           *realtime.Hub
	logger        logrus.FieldLogger
}

func NewHandler(notifications Notifications, otpService OTP, store Store, hub *realtime.Hub, logger logrus.FieldLogger) *Handler {
	return &Handler{
		notifications: notifications,
		otp:           otpService,
		store:         store,
		hub:           hub,
		logger:        logger,
	}
}
