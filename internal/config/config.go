package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Vendor   VendorConfig
	Workflow WorkflowConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is only required when the workflow lock backend is redis.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// VendorConfig covers the inbound voice-screening vendor callbacks.
type VendorConfig struct {
	WebhookSecret string
}

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// WorkflowConfig is passed to the workflow orchestrator at construction.
type WorkflowConfig struct {
	// MinTranscriptChars is the length a transcript must exceed to count as substantive.
	MinTranscriptChars int
	// MaxCompletedCalls caps completed screening calls per application.
	MaxCompletedCalls int
	// MaxRetries caps additional screening attempts after the first one.
	MaxRetries int

	LockBackend string
	LockTTL     time.Duration
}

// DefaultWorkflowConfig returns the values used when the env leaves them unset.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		MinTranscriptChars: 20,
		MaxCompletedCalls:  1,
		MaxRetries:         1,
		LockBackend:        LockBackendMemory,
		LockTTL:            10 * time.Second,
	}
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Vendor.WebhookSecret = os.Getenv("VENDOR_WEBHOOK_SECRET")

	c.Workflow = DefaultWorkflowConfig()
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("WORKFLOW_LOCK_BACKEND"))); v != "" {
		c.Workflow.LockBackend = v
	}
	if d := mustDuration("WORKFLOW_LOCK_TTL"); d > 0 {
		c.Workflow.LockTTL = d
	}
	{
		n, err := intOr("SCREENING_MIN_TRANSCRIPT_CHARS", c.Workflow.MinTranscriptChars)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Workflow.MinTranscriptChars = n
	}
	{
		n, err := intOr("SCREENING_MAX_COMPLETED_CALLS", c.Workflow.MaxCompletedCalls)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Workflow.MaxCompletedCalls = n
	}
	{
		// 0 is meaningful here: a single attempt, no retries.
		n, err := intOr("SCREENING_MAX_RETRIES", c.Workflow.MaxRetries)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Workflow.MaxRetries = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Vendor.WebhookSecret == "" {
			errs = append(errs, errors.New("VENDOR_WEBHOOK_SECRET is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	errs = append(errs, c.Workflow.applyDefaults()...)

	if c.Workflow.LockBackend == LockBackendRedis {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when WORKFLOW_LOCK_BACKEND=redis"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	return joinErrors(errs)
}

func (w *WorkflowConfig) applyDefaults() []error {
	var errs []error
	d := DefaultWorkflowConfig()

	if w.MinTranscriptChars < 0 {
		errs = append(errs, fmt.Errorf("SCREENING_MIN_TRANSCRIPT_CHARS must be >= 0, got %d", w.MinTranscriptChars))
	} else if w.MinTranscriptChars == 0 {
		w.MinTranscriptChars = d.MinTranscriptChars
	}
	if w.MaxCompletedCalls < 0 {
		errs = append(errs, fmt.Errorf("SCREENING_MAX_COMPLETED_CALLS must be >= 0, got %d", w.MaxCompletedCalls))
	} else if w.MaxCompletedCalls == 0 {
		w.MaxCompletedCalls = d.MaxCompletedCalls
	}
	if w.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("SCREENING_MAX_RETRIES must be >= 0, got %d", w.MaxRetries))
	}

	if w.LockBackend == "" {
		w.LockBackend = d.LockBackend
	}
	if w.LockBackend != LockBackendMemory && w.LockBackend != LockBackendRedis {
		errs = append(errs, fmt.Errorf("WORKFLOW_LOCK_BACKEND must be one of memory, redis, got %q", w.LockBackend))
	}
	if w.LockTTL <= 0 {
		w.LockTTL = d.LockTTL
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	return intOr(key, 0)
}

func intOr(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
