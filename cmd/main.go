package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"notify-gateway/internal/alerting"
	"notify-gateway/internal/api"
	"notify-gateway/internal/config"
	"notify-gateway/internal/db"
	"notify-gateway/internal/kafka"
	"notify-gateway/internal/logging"
	"notify-gateway/internal/notification"
	"notify-gateway/internal/otp"
	"notify-gateway/internal/providers"
	"notify-gateway/internal/realtime"
	"notify-gateway/internal/templates"
	"notify-gateway/internal/tracing"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to init tracing: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(ctx, logger, cfg.DB.DSN, cfg.DB.ConnectRetries)
	if err != nil {
		logger.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	if cfg.DB.AutoMigrate {
		if err := dbConn.Migrate(); err != nil {
			logger.Fatalf("Migrations failed: %v", err)
		}
	}

	// OTP storage
	var backend otp.Backend
	switch cfg.OTP.Backend {
	case "redis":
		rb, err := otp.NewRedisBackend(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Redis connection failed: %v", err)
		}
		defer rb.Close()
		backend = rb
		logger.Info("OTP codes stored in Redis")
	default:
		backend = otp.NewMemoryBackend()
		logger.Info("OTP codes stored in memory")
	}

	// Notification pipeline
	scheduler := notification.NewTimerScheduler()
	dispatcher := notification.NewDispatcher(dbConn, scheduler, logger,
		notification.Config{MaxRetries: cfg.Notification.MaxRetries, RetryBaseDelay: cfg.Notification.RetryBaseDelay},
		notification.NewSenders(dbConn, templates.NewRenderer(dbConn), providers.New(cfg), logger)...)

	hub := realtime.NewHub(logger)
	dispatcher.AddListener(hub)

	var alerter *alerting.TelegramAlerter
	if cfg.Telegram.BotToken != "" {
		alerter, err = alerting.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.AlertChatID, logger)
		if err != nil {
			logger.Errorf("Telegram alerts disabled: %v", err)
		} else {
			dispatcher.AddListener(alerter)
		}
	}

	otpService := otp.NewService(otp.NewStore(backend), dispatcher, otp.ServiceConfig{
		Length:     cfg.OTP.Length,
		TTL:        cfg.OTP.TTL,
		ExposeCode: cfg.OTP.ExposeCode,
		AppName:    cfg.OTP.AppName,
	}, logger)

	// Initialize Kafka consumer
	var wg sync.WaitGroup
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(cfg.Kafka, dispatcher, logger)
		consumer.Start(ctx, &wg)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	}

	// Start API server
	handler := api.NewHandler(dispatcher, otpService, dbConn, hub, logger)
	srv := &http.Server{
		Addr:              cfg.API.Port,
		Handler:           api.NewRouter(handler, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown failed: %v", err)
	}
	hub.CloseAll()
	wg.Wait()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Errorf("Kafka consumer close failed: %v", err)
		}
	}
	if pending := scheduler.Pending(); pending > 0 {
		logger.Warnf("Dropping %d pending retries", pending)
	}
	scheduler.Close()
	if alerter != nil {
		alerter.Wait()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Errorf("Tracer shutdown failed: %v", err)
	}
}
