package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Realtime    RealtimeConfig
	Mail        MailConfig
	Context     ContextConfig
	Health      HealthConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

// RedisConfig enables cross-replica event relay when URL is set.
type RedisConfig struct {
	URL           string
	Password      string
	DB            int
	EventsChannel string
}

// Enabled reports whether a Redis URL was configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// JWTConfig enables the bearer guard when Secret is set.
type JWTConfig struct {
	Secret string
	Issuer string
}

type RealtimeConfig struct {
	// MaxConnections caps the live-update registry; 0 means unbounded.
	MaxConnections int
	SendQueueSize  int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

type MailConfig struct {
	SMTP        SMTPConfig
	IMAP        InboxConfig
	POP3        InboxConfig
	DialTimeout time.Duration
	RecentLimit int
	// PlaceholderFallback substitutes canned inbox entries when a poll fails.
	PlaceholderFallback bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type InboxConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// TLS dials with implicit TLS; disable only for local test servers.
	TLS bool
}

// Address returns host:port for dialing.
func (c InboxConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type HealthConfig struct {
	Interval time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults matching the docker-compose deployment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "taskhub"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8000"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("POSTGRES_HOST", "todo-db"),
			Port:            getString("POSTGRES_PORT", "5432"),
			Name:            getString("POSTGRES_DB", "tododb"),
			User:            getString("POSTGRES_USER", "admin"),
			Password:        getString("POSTGRES_PASSWORD", "admin123"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 2),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:           os.Getenv("REDIS_URL"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            getInt("REDIS_DB", 0),
			EventsChannel: getString("REDIS_EVENTS_CHANNEL", "taskhub:task-events"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: os.Getenv("JWT_ISSUER"),
		},
		Realtime: RealtimeConfig{
			MaxConnections: getInt("WS_MAX_CONNECTIONS", 0),
			SendQueueSize:  getInt("WS_SEND_QUEUE", 16),
			WriteTimeout:   getDuration("WS_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:   getDuration("WS_PING_INTERVAL", 30*time.Second),
		},
		Mail: MailConfig{
			SMTP: SMTPConfig{
				Host:     os.Getenv("EMAIL_HOST"),
				Port:     getInt("EMAIL_PORT", 587),
				User:     os.Getenv("EMAIL_USER"),
				Password: os.Getenv("EMAIL_PASSWORD"),
				From:     getString("EMAIL_FROM", os.Getenv("EMAIL_USER")),
			},
			IMAP: InboxConfig{
				Host:     os.Getenv("IMAP_HOST"),
				Port:     getInt("IMAP_PORT", 993),
				User:     os.Getenv("IMAP_USER"),
				Password: os.Getenv("IMAP_PASSWORD"),
				TLS:      getBool("IMAP_TLS", true),
			},
			POP3: InboxConfig{
				Host:     os.Getenv("POP3_HOST"),
				Port:     getInt("POP3_PORT", 995),
				User:     os.Getenv("POP3_USER"),
				Password: os.Getenv("POP3_PASSWORD"),
				TLS:      getBool("POP3_TLS", true),
			},
			DialTimeout:         getDuration("MAIL_DIAL_TIMEOUT", 15*time.Second),
			RecentLimit:         getInt("MAIL_RECENT_LIMIT", 5),
			PlaceholderFallback: getBool("MAIL_PLACEHOLDER_FALLBACK", false),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Health: HealthConfig{
			Interval: getDuration("HEALTH_CHECK_INTERVAL", 5*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg.Database)
	}
	if cfg.Mail.RecentLimit <= 0 {
		return nil, fmt.Errorf("MAIL_RECENT_LIMIT must be positive, got %d", cfg.Mail.RecentLimit)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildPostgresURL(db DatabaseConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     fmt.Sprintf("%s:%s", db.Host, db.Port),
		Path:     "/" + db.Name,
		RawQuery: "sslmode=" + url.QueryEscape(db.SSLMode),
	}
	return u.String()
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
