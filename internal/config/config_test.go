package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "JWT_TTL", "FRONTEND_ORIGIN", "REDIS_URL", "PUSH_QUEUE_KEY",
		"NATS_URL", "BOOKING_SUBJECT", "LOG_LEVEL", "APP_ENV", "WS_SEND_BUFFER", "RATE_LIMIT_PER_MINUTE",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME"} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.JWTTTL != 24*time.Hour || cfg.PushQueueKey != "push:queue" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.BookingSubject != "bookings.created" || cfg.WSSendBuffer != 32 || cfg.RateLimitPerMinute != 120 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Development() {
		t.Fatal("expected development by default")
	}
	if cfg.OTELEndpoint != "" || cfg.OTELServiceName != "homeservices-realtime" {
		t.Fatalf("metrics export should be off by default: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("WS_SEND_BUFFER", "64")
	t.Setenv("APP_ENV", "production")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTTTL != 90*time.Minute || cfg.WSSendBuffer != 64 || cfg.Development() || cfg.NATSURL != "nats://localhost:4222" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.OTELEndpoint != "http://collector:4317" {
		t.Fatalf("expected collector endpoint, got %q", cfg.OTELEndpoint)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing secret error")
	}

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected bad duration error")
	}

	t.Setenv("JWT_TTL", "")
	t.Setenv("WS_SEND_BUFFER", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected bad buffer error")
	}
}
