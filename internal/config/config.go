// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the widget engine's
// timing knobs, the draft store location, logging, and the development mock
// server settings (rate limiting, CORS, observability).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nmikhaylov/go-interview-widget/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the mock server.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// EngineConfig holds the interaction engine's timing parameters. The defaults
// are the contract values: poll every 2s, check the deadline every 1s, give
// up on processing after 60s, debounce draft saves by 2s.
type EngineConfig struct {
	PollInterval       time.Duration // ENGINE_POLL_INTERVAL
	DeadlineCheck      time.Duration // ENGINE_DEADLINE_CHECK
	ProcessingDeadline time.Duration // ENGINE_PROCESSING_DEADLINE
	DraftDebounce      time.Duration // DRAFT_DEBOUNCE
}

// MockServerConfig holds the development backend settings.
type MockServerConfig struct {
	Port           string        // MOCK_PORT, just the number
	DBPath         string        // MOCK_DB_PATH, SQLite path
	GinMode        string        // GIN_MODE: debug|release|test
	RateRPS        float64       // RATE_RPS, tokens per second (>= 0)
	RateBurst      int           // RATE_BURST, bucket size (>= 1)
	IdempotencyTTL time.Duration // how long a given idempotency key is valid
	// StageDelay is how long each simulated post-processing stage
	// (EXTRACTING, SUMMARIZING) lasts before the session advances.
	StageDelay time.Duration // MOCK_STAGE_DELAY
	CORS       CORSConfig
}

// Config holds all configuration values for the application.
type Config struct {
	// Client
	APIBaseURL  string        // API_BASE_URL, e.g. "http://localhost:8080/api"
	HTTPTimeout time.Duration // HTTP_TIMEOUT, per-request cap
	DraftDBPath string        // DRAFT_DB_PATH, SQLite path for persisted drafts

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	Engine EngineConfig
	Mock   MockServerConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables (a .env file is honored
// when present), applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	// Absence of a .env file is the normal case outside dev.
	_ = godotenv.Load()

	cfg := Config{
		// Client
		APIBaseURL:  getenv("API_BASE_URL", "http://localhost:8080/api"),
		HTTPTimeout: getdur("HTTP_TIMEOUT", 15*time.Second),
		DraftDBPath: getenv("DRAFT_DB_PATH", "drafts.db"),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		Engine: EngineConfig{
			PollInterval:       getdur("ENGINE_POLL_INTERVAL", 2*time.Second),
			DeadlineCheck:      getdur("ENGINE_DEADLINE_CHECK", time.Second),
			ProcessingDeadline: getdur("ENGINE_PROCESSING_DEADLINE", 60*time.Second),
			DraftDebounce:      getdur("DRAFT_DEBOUNCE", 2*time.Second),
		},

		Mock: MockServerConfig{
			Port:           getenv("MOCK_PORT", "8080"),
			DBPath:         getenv("MOCK_DB_PATH", "mock.db"),
			GinMode:        strings.ToLower(getenv("GIN_MODE", "release")),
			RateRPS:        getfloat("RATE_RPS", 5.0),
			RateBurst:      getint("RATE_BURST", 10),
			IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),
			StageDelay:     getdur("MOCK_STAGE_DELAY", 3*time.Second),
			CORS: CORSConfig{
				AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
			},
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-interview-widget"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.Mock.GinMode {
	case "debug", "release", "test":
	default:
		cfg.Mock.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return cfg, errors.New("API_BASE_URL must not be empty")
	}
	if cfg.HTTPTimeout <= 0 {
		return cfg, errors.New("HTTP_TIMEOUT must be a positive duration")
	}
	if strings.TrimSpace(cfg.DraftDBPath) == "" {
		return cfg, errors.New("DRAFT_DB_PATH must not be empty")
	}
	if cfg.Engine.PollInterval <= 0 || cfg.Engine.DeadlineCheck <= 0 || cfg.Engine.ProcessingDeadline <= 0 {
		return cfg, errors.New("engine intervals must be positive durations")
	}
	if cfg.Engine.ProcessingDeadline < cfg.Engine.PollInterval {
		return cfg, errors.New("ENGINE_PROCESSING_DEADLINE must not be shorter than ENGINE_POLL_INTERVAL")
	}
	if cfg.Engine.DraftDebounce <= 0 {
		return cfg, errors.New("DRAFT_DEBOUNCE must be a positive duration")
	}
	if strings.TrimSpace(cfg.Mock.Port) == "" {
		return cfg, errors.New("MOCK_PORT must not be empty")
	}
	if strings.TrimSpace(cfg.Mock.DBPath) == "" {
		return cfg, errors.New("MOCK_DB_PATH must not be empty")
	}
	if cfg.Mock.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.Mock.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Mock.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.Mock.StageDelay < 0 {
		return cfg, errors.New("MOCK_STAGE_DELAY must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
