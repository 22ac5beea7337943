package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	Postgres PostgresConfig
	Log      LogConfig
	Moota    MootaConfig
	Mail     MailConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
	EventName   string
	AdminAPIKey string
}

type ServerConfig struct {
	Host string
	Port string
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type LogConfig struct {
	Level string
}

type MootaConfig struct {
	BaseURL       string
	APIToken      string
	WebhookSecret string
	HMACSecret    string
	DefaultBankID string
	HTTPTimeout   time.Duration
}

type MailConfig struct {
	BaseURL     string
	APIKey      string
	FromAddress string
	HTTPTimeout time.Duration
}

type PaymentsConfig struct {
	AmountTolerance  int64
	MaxCheckAttempts int32
	CheckInterval    time.Duration
	FetchWindow      time.Duration
	JobBatchSize     int32
}

type JobsConfig struct {
	PaymentCheckInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	postgresDSN := os.Getenv("POSTGRES_DSN")
	if postgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "registration-service"),
			EventName:   getEnv("APP_EVENT_NAME", "MCVU 2025 Symposium"),
			AdminAPIKey: getEnv("APP_ADMIN_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		Postgres: PostgresConfig{
			DSN:             postgresDSN,
			MaxOpenConns:    getIntEnv("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("POSTGRES_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
			MigrationsPath:  getEnv("POSTGRES_MIGRATIONS_PATH", "migrations"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Moota: MootaConfig{
			BaseURL:       getEnv("MOOTA_BASE_URL", "https://app.moota.co/api/v2"),
			APIToken:      getEnv("MOOTA_API_TOKEN", ""),
			WebhookSecret: getEnv("MOOTA_WEBHOOK_SECRET", ""),
			HMACSecret:    getEnv("MOOTA_HMAC_SECRET", ""),
			DefaultBankID: getEnv("MOOTA_DEFAULT_BANK_ID", ""),
			HTTPTimeout:   getSecondsEnv("MOOTA_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Mail: MailConfig{
			BaseURL:     getEnv("MAIL_BASE_URL", "https://api.resend.com"),
			APIKey:      getEnv("MAIL_API_KEY", ""),
			FromAddress: getEnv("MAIL_FROM_ADDRESS", "noreply@mcvu-symposium.id"),
			HTTPTimeout: getSecondsEnv("MAIL_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Payments: PaymentsConfig{
			AmountTolerance:  int64(getIntEnv("PAYMENTS_AMOUNT_TOLERANCE", 10000)),
			MaxCheckAttempts: int32(getIntEnv("PAYMENTS_MAX_CHECK_ATTEMPTS", 288)),
			CheckInterval:    getMinutesEnv("PAYMENTS_CHECK_INTERVAL_MINUTES", 5*time.Minute),
			FetchWindow:      getMinutesEnv("PAYMENTS_FETCH_WINDOW_MINUTES", 24*time.Hour),
			JobBatchSize:     int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			PaymentCheckInterval: getMinutesEnv("JOBS_PAYMENT_CHECK_INTERVAL_MINUTES", time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
