package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ms-badging/internal/models"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Badge    BadgeConfig
	Event    models.EventInfo
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	AutoMigrate  bool
	Migrations   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN is the lib/pq connection string, or the sqlite file for the sqlite
// driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type KafkaConfig struct {
	Brokers       []string
	GroupID       string
	Enabled       bool
	ConsumeTopics bool
	Topics        TopicConfig
}

type TopicConfig struct {
	BadgeIssued      string
	CheckIns         string
	BadgeDeactivated string
	Registrations    string
}

type AuthConfig struct {
	// Empty disables authentication.
	OIDCIssuer string
}

type BadgeConfig struct {
	IDPrefix        string
	QRSize          int
	DefaultLocation string
	TeamCompany     string
	FontPath        string
	LockTTL         time.Duration
	LockWait        time.Duration
}

type LogConfig struct {
	Dir   string
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8080"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 0),
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "badge_user"),
			Password:     getEnv("DB_PASSWORD", "badge_pass"),
			Database:     getEnv("DB_NAME", "badges"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			SQLitePath:   getEnv("SQLITE_PATH", "file:badges.db?cache=shared"),
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", false),
			Migrations:   getEnv("MIGRATIONS_PATH", "file://internal/database/migrations/sql"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID:       getEnv("KAFKA_GROUP_ID", "badge-service-group"),
			Enabled:       getEnvBool("KAFKA_ENABLED", true),
			ConsumeTopics: getEnvBool("KAFKA_CONSUME_REGISTRATIONS", true),
			Topics: TopicConfig{
				BadgeIssued:      getEnv("KAFKA_TOPIC_BADGE_ISSUED", "badges.issued"),
				CheckIns:         getEnv("KAFKA_TOPIC_CHECKINS", "badges.checkins"),
				BadgeDeactivated: getEnv("KAFKA_TOPIC_BADGE_DEACTIVATED", "badges.deactivated"),
				Registrations:    getEnv("KAFKA_TOPIC_REGISTRATIONS", "registrations.created"),
			},
		},
		Auth: AuthConfig{
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
		},
		Badge: BadgeConfig{
			IDPrefix:        getEnv("BADGE_ID_PREFIX", "AIS2025"),
			QRSize:          getEnvInt("QR_SIZE", 256),
			DefaultLocation: getEnv("DEFAULT_CHECKIN_LOCATION", models.DefaultCheckInLocation),
			TeamCompany:     getEnv("TEAM_COMPANY", "CBA Team"),
			FontPath:        getEnv("BADGE_FONT_PATH", ""),
			LockTTL:         getEnvDuration("BADGE_LOCK_TTL", 10*time.Second),
			LockWait:        getEnvDuration("BADGE_LOCK_WAIT", 3*time.Second),
		},
		Event: models.EventInfo{
			Name:  getEnv("EVENT_NAME", "First AI Summit Croydon 2025"),
			Date:  getEnv("EVENT_DATE", "October 1st, 2025"),
			Venue: getEnv("EVENT_VENUE", "LSBU London South Bank University Croydon"),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("10s") or plain seconds ("10").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
