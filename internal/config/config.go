package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Discord   DiscordConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	APIKey                string
	RequestTimeoutSeconds int
	TranscriptTimezone    string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// DiscordConfig holds gateway credentials and the fixed channel/category
// identifiers the ticket system operates on.
type DiscordConfig struct {
	Token                 string
	AppID                 string
	GuildID               string
	TicketsCategoryID     string
	PanelChannelID        string
	DefaultManagerRoleIDs []string
}

// StorageConfig points at S3-compatible object storage for attachment
// archival. When Endpoint or Bucket is empty archival is skipped and
// transcripts keep the original platform links.
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UseSSL        bool
}

// RateLimitConfig controls the ticket-creation cooldown.
type RateLimitConfig struct {
	WindowSeconds int
	UseRedis      bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticketbot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			BaseURL:               getEnv("BASE_URL", "http://localhost:3000"),
			APIKey:                getEnv("API_KEY", "changeme"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			TranscriptTimezone:    getEnv("TRANSCRIPT_TIMEZONE", "Europe/Warsaw"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Discord: DiscordConfig{
			Token:                 os.Getenv("DISCORD_TOKEN"),
			AppID:                 os.Getenv("DISCORD_CLIENT_ID"),
			GuildID:               os.Getenv("DISCORD_GUILD_ID"),
			TicketsCategoryID:     os.Getenv("TICKETS_CATEGORY_ID"),
			PanelChannelID:        os.Getenv("PANEL_CHANNEL_ID"),
			DefaultManagerRoleIDs: splitList(os.Getenv("MANAGER_ROLE_IDS")),
		},
		Storage: StorageConfig{
			Endpoint:      os.Getenv("STORAGE_ENDPOINT"),
			AccessKey:     os.Getenv("STORAGE_ACCESS_KEY_ID"),
			SecretKey:     os.Getenv("STORAGE_SECRET_ACCESS_KEY"),
			Bucket:        os.Getenv("STORAGE_BUCKET_NAME"),
			PublicBaseURL: strings.TrimRight(os.Getenv("STORAGE_PUBLIC_BASE_URL"), "/"),
			UseSSL:        getEnvAsBool("STORAGE_USE_SSL", true),
		},
		RateLimit: RateLimitConfig{
			WindowSeconds: getEnvAsInt("TICKET_COOLDOWN_SECONDS", 60),
			UseRedis:      getEnvAsBool("TICKET_COOLDOWN_USE_REDIS", false),
		},
	}

	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if cfg.Discord.GuildID == "" || cfg.Discord.TicketsCategoryID == "" || cfg.Discord.PanelChannelID == "" {
		return nil, fmt.Errorf("DISCORD_GUILD_ID, TICKETS_CATEGORY_ID and PANEL_CHANNEL_ID are required")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Window returns the cooldown window duration.
func (r RateLimitConfig) Window() time.Duration {
	if r.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowSeconds) * time.Second
}

// Configured reports whether object storage is usable for archival.
func (s StorageConfig) Configured() bool {
	return s.Endpoint != "" && s.Bucket != "" && s.PublicBaseURL != ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
