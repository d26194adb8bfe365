package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"backend-tiket/internal/queue"
)

type Config struct {
	Host string
	Port string

	StoreDriver string // redis | memory

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTimeout  time.Duration

	// DBDSN enables the MySQL journal when set.
	DBDSN string

	Announce queue.AnnouncePolicy

	// Opening hours, "HH:MM" or "HH:MM:SS". Both empty means always open.
	OpenAt   string
	CloseAt  string
	TimeZone string

	LogLevel  string
	LogFormat string
}

func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func (c Config) HoursEnabled() bool {
	return c.OpenAt != "" && c.CloseAt != ""
}

// Load builds a Config from the environment. Call LoadEnv first to pick up .env.
func Load() (Config, error) {
	cfg := Config{
		Host:          GetEnv("APP_HOST", ""),
		Port:          GetEnv("APP_PORT", "8080"),
		StoreDriver:   GetEnv("STORE_DRIVER", "redis"),
		RedisAddr:     GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		DBDSN:         GetEnv("DB_DSN", ""),
		OpenAt:        GetEnv("QUEUE_OPEN", ""),
		CloseAt:       GetEnv("QUEUE_CLOSE", ""),
		TimeZone:      GetEnv("QUEUE_TZ", "Asia/Jakarta"),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
		LogFormat:     GetEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.RedisTimeout, err = getDuration("REDIS_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, fmt.Errorf("REDIS_TIMEOUT: %w", err)
	}
	if cfg.Announce, err = queue.ParseAnnouncePolicy(GetEnv("ANNOUNCE_ON", "call")); err != nil {
		return Config{}, fmt.Errorf("ANNOUNCE_ON: %w", err)
	}

	switch cfg.StoreDriver {
	case "redis", "memory":
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver)
	}

	if (cfg.OpenAt == "") != (cfg.CloseAt == "") {
		return Config{}, fmt.Errorf("QUEUE_OPEN and QUEUE_CLOSE must be set together")
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return Config{}, fmt.Errorf("QUEUE_TZ: %w", err)
	}

	return cfg, nil
}
