// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	GRPCPort    string
	FrontendURL string
	DBPath      string
	AdminToken  string

	Auth      AuthConfig
	Alert     AlertConfig
	MQTT      MQTTConfig
	Search    SearchConfig
	WebSocket WebSocketConfig
}

// AuthConfig controls bearer token signing and validation.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AlertConfig controls alert delivery.
type AlertConfig struct {
	// Cooldown suppresses repeats of the same (user, type) alert. Zero disables it.
	Cooldown time.Duration
	RedisURL string
}

// MQTTConfig controls sensor ingestion. An empty Broker disables the subscriber.
type MQTTConfig struct {
	Broker     string
	Topic      string
	ClientID   string
	StaleAfter time.Duration
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// SearchConfig points at an optional Meilisearch instance.
type SearchConfig struct {
	MeiliURL    string
	MeiliAPIKey string
}

// WebSocketConfig bounds per-connection resources.
type WebSocketConfig struct {
	SendQueue int
	ReadLimit int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	sendQueue := getEnvInt("WS_SEND_QUEUE", 64)
	if sendQueue <= 0 {
		sendQueue = 64
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GRPCPort:    getEnv("GRPC_PORT", ""),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/envmon.db"),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),
		},
		Alert: AlertConfig{
			Cooldown: getEnvDuration("ALERT_COOLDOWN", 0),
			RedisURL: getEnv("REDIS_URL", ""),
		},
		MQTT: MQTTConfig{
			Broker:     getEnv("MQTT_BROKER", ""),
			Topic:      getEnv("MQTT_TOPIC", "capteurs/qualite_air"),
			ClientID:   getEnv("MQTT_CLIENT_ID", "envmon-server"),
			StaleAfter: getEnvDuration("SENSOR_STALE_AFTER", 5*time.Minute),
		},
		Search: SearchConfig{
			MeiliURL:    getEnv("MEILI_URL", ""),
			MeiliAPIKey: getEnv("MEILI_API_KEY", ""),
		},
		WebSocket: WebSocketConfig{
			SendQueue: sendQueue,
			ReadLimit: int64(getEnvInt("WS_READ_LIMIT", 32768)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	if c.Alert.Cooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN cannot be negative")
	}
	if c.MQTT.Enabled() && c.MQTT.Topic == "" {
		return fmt.Errorf("MQTT_TOPIC cannot be empty when MQTT_BROKER is set")
	}
	if c.MQTT.StaleAfter < 0 {
		return fmt.Errorf("SENSOR_STALE_AFTER cannot be negative")
	}
	if c.WebSocket.ReadLimit <= 0 {
		return fmt.Errorf("WS_READ_LIMIT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	origins := []string{}
	for _, o := range strings.Split(c.FrontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
