package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config collects everything the process needs: listeners, backing
// stores, and the optional relay tuning file.
type Config struct {
	Port string

	Database DatabaseConfig
	Redis    RedisConfig
	NATSURL  string

	Relay RelayConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RelayConfig is the yaml-tunable websocket surface.
type RelayConfig struct {
	WriteTimeoutSeconds int   `yaml:"write_timeout_seconds"`
	ReadTimeoutSeconds  int   `yaml:"read_timeout_seconds"`
	PingIntervalSeconds int   `yaml:"ping_interval_seconds"`
	MaxMessageSize      int64 `yaml:"max_message_size"`
	SendBufferSize      int   `yaml:"send_buffer_size"`
}

func loadConfig() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "planner"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATSURL: getEnv("NATS_URL", ""),
	}

	if path := getEnv("RELAY_CONFIG", ""); path != "" {
		if err := loadRelayConfig(path, &cfg.Relay); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("relay config not loaded, using defaults")
		}
	}

	return cfg
}

func loadRelayConfig(path string, out *RelayConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c RelayConfig) writeTimeout() time.Duration {
	return secondsOr(c.WriteTimeoutSeconds, 10*time.Second)
}

func (c RelayConfig) readTimeout() time.Duration {
	return secondsOr(c.ReadTimeoutSeconds, 60*time.Second)
}

func (c RelayConfig) pingInterval() time.Duration {
	return secondsOr(c.PingIntervalSeconds, 30*time.Second)
}

func secondsOr(s int, fallback time.Duration) time.Duration {
	if s > 0 {
		return time.Duration(s) * time.Second
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
