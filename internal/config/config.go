package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment after an
// optional .env file.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Telegram  TelegramConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	BigQuery  BigQueryConfig
	Notion    NotionConfig
	Queue     QueueConfig
	Dashboard DashboardConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the DB_* parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type TelegramConfig struct {
	BotToken      string
	AllowedUsers  []string // empty means everyone may submit receipts
	WebhookSecret string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// StorageConfig selects the blob store once at start: GCS when Bucket is set,
// otherwise files under ReceiptsFolder.
type StorageConfig struct {
	Bucket         string
	SignedURLTTL   time.Duration
	ReceiptsFolder string
}

type BigQueryConfig struct {
	Project string
	Dataset string
}

// Enabled reports whether model outputs are archived.
func (c BigQueryConfig) Enabled() bool { return c.Project != "" }

type NotionConfig struct {
	Token      string
	DatabaseID string
}

// Enabled reports whether transactions are mirrored to Notion.
func (c NotionConfig) Enabled() bool { return c.Token != "" && c.DatabaseID != "" }

type QueueConfig struct {
	Workers        int
	Buffer         int
	SessionTimeout time.Duration
}

type DashboardConfig struct {
	APIToken string
}

// Load reads the configuration. A missing .env file is not an error; a
// malformed number or duration is.
func Load() (*Config, error) {
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	var errs []string
	intEnv := func(key string, def int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return def
		}
		return v
	}
	durationEnv := func(key string, def time.Duration) time.Duration {
		v, err := time.ParseDuration(getEnv(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return def
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "kitchen_ledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Telegram: TelegramConfig{
			BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
			AllowedUsers:  splitList(getEnv("TELEGRAM_ALLOWED_USERS", "")),
			WebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Storage: StorageConfig{
			Bucket:         getEnv("GCS_BUCKET", ""),
			SignedURLTTL:   durationEnv("GCS_SIGNED_URL_TTL", 15*time.Minute),
			ReceiptsFolder: getEnv("RECEIPTS_FOLDER", "./receipts"),
		},
		BigQuery: BigQueryConfig{
			Project: getEnv("BIGQUERY_PROJECT", ""),
			Dataset: getEnv("BIGQUERY_DATASET", "kitchen_ledger"),
		},
		Notion: NotionConfig{
			Token:      getEnv("NOTION_TOKEN", ""),
			DatabaseID: getEnv("NOTION_DATABASE_ID", ""),
		},
		Queue: QueueConfig{
			Workers:        intEnv("QUEUE_WORKERS", 5),
			Buffer:         intEnv("QUEUE_BUFFER", 100),
			SessionTimeout: durationEnv("SESSION_TIMEOUT", 3*time.Minute),
		},
		Dashboard: DashboardConfig{
			APIToken: getEnv("DASHBOARD_API_TOKEN", ""),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config.Load: invalid values: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// RequireTelegram checks the settings every bot process needs.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
