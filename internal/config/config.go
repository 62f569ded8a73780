package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort           string
	APIBaseURL         string
	TrackingWSURL      string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	SessionTTL         time.Duration
	MaxRequestBodySize int64

	RedisAddr     string
	RedisPassword string

	KafkaBrokers   []string
	AnalyticsTopic string

	RetryMax       int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	BreakerFailures int
	BreakerCooldown time.Duration

	TrackingReconnects int
	ShareInterval      time.Duration

	BookingCreateEnabled bool
	LogLevel             string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		APIBaseURL:           strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
		TrackingWSURL:        getEnv("TRACKING_WS_URL", ""),
		RequestTimeout:       getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:      getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		SessionTTL:           getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		MaxRequestBodySize:   1 << 20, // 1MB
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:         getEnvAsList("KAFKA_BROKERS"),
		AnalyticsTopic:       getEnv("ANALYTICS_TOPIC", "storefront-events"),
		RetryMax:             getEnvAsInt("RETRY_MAX", 3),
		RetryBaseDelay:       getEnvAsDuration("RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:        getEnvAsDuration("RETRY_MAX_DELAY", 10*time.Second),
		BreakerFailures:      getEnvAsInt("BREAKER_FAILURES", 5),
		BreakerCooldown:      getEnvAsDuration("BREAKER_COOLDOWN", 30*time.Second),
		TrackingReconnects:   getEnvAsInt("TRACKING_RECONNECTS", 5),
		ShareInterval:        getEnvAsDuration("LOCATION_SHARE_INTERVAL", 5*time.Second),
		BookingCreateEnabled: getEnvAsBool("BOOKING_CREATE_ENABLED", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if cfg.TrackingWSURL == "" {
		cfg.TrackingWSURL = wsURL(cfg.APIBaseURL)
	}
	return cfg, nil
}

// wsURL derives the websocket origin from the API base URL.
func wsURL(api string) string {
	u := api
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/api")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
