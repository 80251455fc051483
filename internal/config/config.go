package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               string
	DatabaseURL        string
	JWTSecret          string
	JWTTTL             time.Duration
	FrontendOrigin     string
	RedisURL           string
	PushQueueKey       string
	NATSURL            string
	BookingSubject     string
	LogLevel           string
	AppEnv             string
	WSSendBuffer       int
	RateLimitPerMinute int
	OTELEndpoint       string
	OTELServiceName    string
}

// Load reads the environment. Call godotenv.Load first to pick up a .env file.
func Load() (Config, error) {
	cfg := Config{
		Port:           envOrDefault("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		FrontendOrigin: envOrDefault("FRONTEND_ORIGIN", "http://localhost:5173"),
		RedisURL:       os.Getenv("REDIS_URL"),
		PushQueueKey:   envOrDefault("PUSH_QUEUE_KEY", "push:queue"),
		NATSURL:        os.Getenv("NATS_URL"),
		BookingSubject: envOrDefault("BOOKING_SUBJECT", "bookings.created"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		AppEnv:         envOrDefault("APP_ENV", "development"),

		OTELEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELServiceName: envOrDefault("OTEL_SERVICE_NAME", "homeservices-realtime"),
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}

	var err error
	if cfg.JWTTTL, err = durationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.WSSendBuffer, err = intEnv("WS_SEND_BUFFER", 32); err != nil {
		return cfg, err
	}
	if cfg.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Development reports whether the service runs with developer conveniences
// such as console logging.
func (c Config) Development() bool {
	return c.AppEnv == "development"
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return v, nil
}
