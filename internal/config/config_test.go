package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Client
	t.Setenv("API_BASE_URL", "http://api.test/api")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("DRAFT_DB_PATH", "d.sqlite")

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")

	// Engine timing
	t.Setenv("ENGINE_POLL_INTERVAL", "500ms")
	t.Setenv("ENGINE_DEADLINE_CHECK", "250ms")
	t.Setenv("ENGINE_PROCESSING_DEADLINE", "30s")
	t.Setenv("DRAFT_DEBOUNCE", "1s")

	// Mock server
	t.Setenv("MOCK_PORT", "8088")
	t.Setenv("MOCK_DB_PATH", "mock.sqlite")
	t.Setenv("GIN_MODE", "weird")  // will normalize to "release"
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10
	t.Setenv("IDEMPOTENCY_TTL", "48h")
	t.Setenv("MOCK_STAGE_DELAY", "100ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Client
	if cfg.APIBaseURL != "http://api.test/api" || cfg.HTTPTimeout != 5*time.Second || cfg.DraftDBPath != "d.sqlite" {
		t.Fatalf("client fields unexpected: %+v", cfg)
	}

	// Logging
	if cfg.LogLevel != "warn" || !cfg.LogPretty {
		t.Fatalf("logging unexpected: %+v", cfg)
	}

	// Engine
	if cfg.Engine.PollInterval != 500*time.Millisecond ||
		cfg.Engine.DeadlineCheck != 250*time.Millisecond ||
		cfg.Engine.ProcessingDeadline != 30*time.Second ||
		cfg.Engine.DraftDebounce != time.Second {
		t.Fatalf("engine fields unexpected: %+v", cfg.Engine)
	}

	// Mock server
	if cfg.Mock.Port != "8088" || cfg.Mock.DBPath != "mock.sqlite" || cfg.Mock.GinMode != "release" {
		t.Fatalf("mock fields unexpected: %+v", cfg.Mock)
	}
	if cfg.Mock.RateRPS != 5.0 || cfg.Mock.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg.Mock)
	}
	if cfg.Mock.IdempotencyTTL != 48*time.Hour || cfg.Mock.StageDelay != 100*time.Millisecond {
		t.Fatalf("mock timing unexpected: %+v", cfg.Mock)
	}
	if !reflect.DeepEqual(cfg.Mock.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.Mock.CORS.AllowedOrigins)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	t.Run("invalid LOG_LEVEL", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		if _, err := Load(); err == nil {
			t.Fatalf("expected LOG_LEVEL validation error")
		}
	})
	t.Run("empty API_BASE_URL via spaces", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "API_BASE_URL must not be empty") {
			t.Fatalf("expected base url validation error, got: %v", err)
		}
	})
	t.Run("non-positive http timeout", func(t *testing.T) {
		t.Setenv("HTTP_TIMEOUT", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "HTTP_TIMEOUT") {
			t.Fatalf("expected HTTP_TIMEOUT validation error, got: %v", err)
		}
	})
	t.Run("empty DRAFT_DB_PATH", func(t *testing.T) {
		t.Setenv("DRAFT_DB_PATH", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "DRAFT_DB_PATH must not be empty") {
			t.Fatalf("expected DRAFT_DB_PATH validation error, got: %v", err)
		}
	})
	t.Run("non-positive engine interval", func(t *testing.T) {
		t.Setenv("ENGINE_POLL_INTERVAL", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "engine intervals must be positive") {
			t.Fatalf("expected engine interval validation error, got: %v", err)
		}
	})
	t.Run("deadline shorter than poll interval", func(t *testing.T) {
		t.Setenv("ENGINE_POLL_INTERVAL", "10s")
		t.Setenv("ENGINE_PROCESSING_DEADLINE", "5s")
		if _, err := Load(); err == nil || !containsErr(err, "ENGINE_PROCESSING_DEADLINE") {
			t.Fatalf("expected deadline validation error, got: %v", err)
		}
	})
	t.Run("non-positive draft debounce", func(t *testing.T) {
		t.Setenv("DRAFT_DEBOUNCE", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "DRAFT_DEBOUNCE") {
			t.Fatalf("expected DRAFT_DEBOUNCE validation error, got: %v", err)
		}
	})
	t.Run("empty MOCK_PORT via spaces", func(t *testing.T) {
		t.Setenv("MOCK_PORT", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "MOCK_PORT must not be empty") {
			t.Fatalf("expected MOCK_PORT validation error, got: %v", err)
		}
	})
	t.Run("empty MOCK_DB_PATH", func(t *testing.T) {
		t.Setenv("MOCK_DB_PATH", "   ")
		if _, err := Load(); err == nil || !containsErr(err, "MOCK_DB_PATH must not be empty") {
			t.Fatalf("expected MOCK_DB_PATH validation error, got: %v", err)
		}
	})
	t.Run("rate rps negative", func(t *testing.T) {
		t.Setenv("RATE_RPS", "-1")
		if _, err := Load(); err == nil || !containsErr(err, "RATE_RPS") {
			t.Fatalf("expected RATE_RPS validation error, got: %v", err)
		}
	})
	t.Run("rate burst < 1", func(t *testing.T) {
		t.Setenv("RATE_BURST", "0")
		if _, err := Load(); err == nil || !containsErr(err, "RATE_BURST") {
			t.Fatalf("expected RATE_BURST validation error, got: %v", err)
		}
	})
	t.Run("idempotency ttl non-positive", func(t *testing.T) {
		t.Setenv("IDEMPOTENCY_TTL", "0s")
		if _, err := Load(); err == nil || !containsErr(err, "IDEMPOTENCY_TTL") {
			t.Fatalf("expected IDEMPOTENCY_TTL validation error, got: %v", err)
		}
	})
	t.Run("stage delay negative", func(t *testing.T) {
		t.Setenv("MOCK_STAGE_DELAY", "-1s")
		if _, err := Load(); err == nil || !containsErr(err, "MOCK_STAGE_DELAY") {
			t.Fatalf("expected MOCK_STAGE_DELAY validation error, got: %v", err)
		}
	})
	t.Run("otel sample ratio out of range", func(t *testing.T) {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")
		if _, err := Load(); err == nil || !containsErr(err, "OTEL_TRACES_SAMPLER_ARG") {
			t.Fatalf("expected OTEL_TRACES_SAMPLER_ARG validation error, got: %v", err)
		}
	})
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	for i, v := range trueVals {
		k := "B_T_" + config_strconv(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	falseVals := []string{"0", "false", "FALSE", " no ", "N", "off", "Off"}
	for i, v := range falseVals {
		k := "B_F_" + config_strconv(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	// default on unset/empty
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	in := " a, ,b ,  c  ,"
	want := []string{"a", "b", "c"}
	if got := splitCSV(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}
}

// small helper (avoid fmt just for ints)
func config_strconv(i int) string { return string('a' + rune(i)) }

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	os.Unsetenv("MOCK_PORT")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	// No special env needed; defaults are valid.
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBaseURL == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}
