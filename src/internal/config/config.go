package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=ledger_transfer_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultHTTPAddr = ":8080"
const defaultChannelID = "LedgerApp"
const defaultChannelKey = "LedgerKey001"

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

type Config struct {
	DatabaseDSN    string
	MigrationsDir  string
	StorageBackend string
	HTTPAddr       string
	LogLevel       string

	ChannelID      string
	ChannelKey     string
	ChannelKeyHash string

	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration

	WorkerCount int
	QueueSize   int

	RecoveryInterval time.Duration
	RecoveryGrace    time.Duration

	WebhookURL           string
	WebhookSecret        string
	WebhookRatePerSecond float64

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseDSN:    normalizeConnectionString(stringEnv("DATABASE_DSN", defaultConnectionString)),
		MigrationsDir:  stringEnv("MIGRATIONS_DIR", filepath.Join("src", "migrations")),
		StorageBackend: strings.ToLower(stringEnv("STORAGE_BACKEND", StorageBackendPostgres)),
		HTTPAddr:       stringEnv("HTTP_ADDR", defaultHTTPAddr),
		LogLevel:       strings.ToLower(stringEnv("LOG_LEVEL", "info")),
		ChannelID:      stringEnv("CHANNEL_ID", defaultChannelID),
		ChannelKey:     stringEnv("CHANNEL_KEY", defaultChannelKey),
		ChannelKeyHash: stringEnv("CHANNEL_KEY_HASH", ""),
		WebhookURL:     stringEnv("WEBHOOK_URL", ""),
		WebhookSecret:  stringEnv("WEBHOOK_SECRET", ""),
	}

	var err error
	if cfg.MaxAttempts, err = intEnv("MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if cfg.WorkerCount, err = intEnv("WORKER_COUNT", 8); err != nil {
		return Config{}, err
	}
	if cfg.QueueSize, err = intEnv("QUEUE_SIZE", 1024); err != nil {
		return Config{}, err
	}
	if cfg.BackoffBase, err = durationEnv("BACKOFF_BASE", 10*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.BackoffMax, err = durationEnv("BACKOFF_MAX", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.RecoveryInterval, err = durationEnv("RECOVERY_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RecoveryGrace, err = durationEnv("RECOVERY_GRACE", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.WebhookRatePerSecond, err = floatEnv("WEBHOOK_RATE_PER_SECOND", 20); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	var errs []string

	if c.StorageBackend != StorageBackendPostgres && c.StorageBackend != StorageBackendMemory {
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND must be %q or %q", StorageBackendPostgres, StorageBackendMemory))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, "MAX_ATTEMPTS must be at least 1")
	}
	if c.WorkerCount < 1 {
		errs = append(errs, "WORKER_COUNT must be at least 1")
	}
	if c.QueueSize < 1 {
		errs = append(errs, "QUEUE_SIZE must be at least 1")
	}
	if c.BackoffMax < c.BackoffBase {
		errs = append(errs, "BACKOFF_MAX must not be less than BACKOFF_BASE")
	}
	if c.WebhookRatePerSecond <= 0 {
		errs = append(errs, "WEBHOOK_RATE_PER_SECOND must be greater than zero")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func stringEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("parse %s: duration must not be negative", key)
	}
	return value, nil
}

// normalizeConnectionString accepts either a lib/pq key=value DSN, a URL, or
// the semicolon separated form used by .NET style connection strings.
func normalizeConnectionString(raw string) string {
	if !strings.Contains(raw, ";") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
