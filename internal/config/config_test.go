package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:  AppConfig{Env: "local", Port: 8080},
		DB:   DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "hiring"},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLModeAndWebhookSecret(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and VENDOR_WEBHOOK_SECRET")
	}

	c = validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	c.DB.SSLMode = "require"
	c.Vendor.WebhookSecret = "s"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Workflow.MinTranscriptChars != 20 {
		t.Fatalf("expected transcript threshold 20, got %d", c.Workflow.MinTranscriptChars)
	}
	if c.Workflow.MaxCompletedCalls != 1 {
		t.Fatalf("expected max completed calls 1, got %d", c.Workflow.MaxCompletedCalls)
	}
	if c.Workflow.LockBackend != LockBackendMemory {
		t.Fatalf("expected memory lock backend, got %q", c.Workflow.LockBackend)
	}
	if c.Workflow.LockTTL != 10*time.Second {
		t.Fatalf("expected 10s lock ttl, got %v", c.Workflow.LockTTL)
	}
}

func TestValidate_RedisLockRequiresRedis(t *testing.T) {
	c := validLocal()
	c.Workflow.LockBackend = LockBackendRedis
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when redis lock backend has no redis address")
	}

	c = validLocal()
	c.Workflow.LockBackend = LockBackendRedis
	c.Redis = RedisConfig{Host: "localhost", Port: 6379}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_RejectsUnknownLockBackend(t *testing.T) {
	c := validLocal()
	c.Workflow.LockBackend = "etcd"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown lock backend")
	}
}

func TestLoad_ReadsWorkflowEnv(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "hiring")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SCREENING_MIN_TRANSCRIPT_CHARS", "50")
	t.Setenv("SCREENING_MAX_RETRIES", "0")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Workflow.MinTranscriptChars != 50 {
		t.Fatalf("expected 50, got %d", c.Workflow.MinTranscriptChars)
	}
	if c.Workflow.MaxRetries != 0 {
		t.Fatalf("expected explicit zero retries to be kept, got %d", c.Workflow.MaxRetries)
	}
	if c.Workflow.MaxCompletedCalls != 1 {
		t.Fatalf("expected default max completed calls, got %d", c.Workflow.MaxCompletedCalls)
	}
}

func TestLoad_RejectsNonIntegerThreshold(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "hiring")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SCREENING_MIN_TRANSCRIPT_CHARS", "twenty")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
