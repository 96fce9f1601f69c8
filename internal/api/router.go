package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"notify-gateway/internal/config"
	"notify-gateway/internal/metrics"

	_ "notify-gateway/docs"
)

func NewRouter(h *Handler, cfg config.Config, logger logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := NewTokenAuth(h.store, cfg.JWTSecret, cfg.RateLimit.DefaultPerMinute, logger)

	api := r.Group(cfg.API.BasePath)
	api.Use(IPBlacklistMiddleware(h.store, logger), auth.Middleware())
	{
		// Notifications
		api.POST("/notifications", h.SendNotification)
		api.POST("/notifications/bulk", h.SendBulkNotifications)
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/:id", h.GetNotification)

		// OTP
		api.POST("/otp/email", h.SendOTPEmail)
		api.POST("/otp/sms", h.SendOTPSMS)
		api.POST("/otp/both", h.SendOTPBoth)
		api.POST("/otp/verify", h.VerifyOTP)
		api.GET("/otp/:identifier", h.GetOTPInfo)
		api.DELETE("/otp/:identifier", h.ClearOTP)

		api.GET("/ws/notifications", h.StreamNotifications)
	}
	return r
}
