package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	API          APIConfig
	DB           DBConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Email        EmailConfig
	Twilio       TwilioConfig
	Telegram     TelegramConfig
	Notification NotificationConfig
	OTP          OTPConfig
	RateLimit    RateLimitConfig
	Logging      LoggingConfig
	Tracing      TracingConfig
	JWTSecret    string `env:"JWT_SECRET"`
}

type APIConfig struct {
	Port     string `env:"API_PORT" envDefault:":8080"`
	BasePath string `env:"API_BASE_PATH" envDefault:"/api/v1"`
}

type DBConfig struct {
	DSN            string `env:"DB_DSN"`
	ConnectRetries int    `env:"DB_CONNECT_RETRIES" envDefault:"5"`
	AutoMigrate    bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type KafkaConfig struct {
	Broker  string `env:"KAFKA_BROKER"`
	Topic   string `env:"KAFKA_TOPIC" envDefault:"notification_requests"`
	GroupID string `env:"KAFKA_GROUP_ID" envDefault:"notify-gateway"`
}

type EmailConfig struct {
	SMTPServer  string `env:"EMAIL_SMTP_SERVER"`
	SMTPPort    int    `env:"EMAIL_SMTP_PORT" envDefault:"587"`
	Username    string `env:"EMAIL_USERNAME"`
	Password    string `env:"EMAIL_PASSWORD"`
	FromAddress string `env:"EMAIL_FROM_ADDRESS"`
	FromName    string `env:"EMAIL_FROM_NAME" envDefault:"Notify Gateway"`
	RatePerSec  int    `env:"EMAIL_RATE_PER_SEC" envDefault:"10"`
}

type TwilioConfig struct {
	AccountSID     string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken      string `env:"TWILIO_AUTH_TOKEN"`
	SMSFrom        string `env:"TWILIO_SMS_FROM"`
	WhatsAppFrom   string `env:"TWILIO_WHATSAPP_FROM"`
	StatusCallback string `env:"TWILIO_STATUS_CALLBACK"`
	RatePerSec     int    `env:"TWILIO_RATE_PER_SEC" envDefault:"5"`
}

type TelegramConfig struct {
	BotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	AlertChatID int64  `env:"TELEGRAM_ALERT_CHAT_ID"`
}

type NotificationConfig struct {
	MaxRetries     int           `env:"NOTIFICATION_MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"NOTIFICATION_RETRY_BASE_DELAY" envDefault:"1s"`
}

type OTPConfig struct {
	Length     int           `env:"OTP_LENGTH" envDefault:"6"`
	TTL        time.Duration `env:"OTP_TTL" envDefault:"10m"`
	Backend    string        `env:"OTP_BACKEND" envDefault:"memory"`
	ExposeCode bool          `env:"OTP_EXPOSE_CODE" envDefault:"false"`
	AppName    string        `env:"OTP_APP_NAME" envDefault:"Notify Gateway"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

type LoggingConfig struct {
	Dir    string `env:"LOG_DIR" envDefault:"logs"`
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type TracingConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"notify-gateway"`
}

// Load reads .env (if present) and environment variables, applies defaults,
// validates required settings and returns a Config.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load %s file: %w", path, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.OTP.Backend == "redis" && cfg.Redis.URL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	if cfg.Notification.MaxRetries < 0 {
		cfg.Notification.MaxRetries = 0
	}
	if cfg.OTP.Length <= 0 {
		cfg.OTP.Length = 6
	}

	return cfg, nil
}
