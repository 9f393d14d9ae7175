package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.CapabilityBaseURL != "http://127.0.0.1:8080/functions/v1" {
		t.Fatalf("CapabilityBaseURL = %q, want self url", cfg.CapabilityBaseURL)
	}
	if cfg.ScriptProvider != "auto" || cfg.SpeechProvider != "auto" {
		t.Fatalf("providers = %q/%q, want auto/auto", cfg.ScriptProvider, cfg.SpeechProvider)
	}
	if cfg.AuthTokenTTL != 24*time.Hour {
		t.Fatalf("AuthTokenTTL = %v, want 24h", cfg.AuthTokenTTL)
	}
	if cfg.ResourceTTL != 30*time.Minute {
		t.Fatalf("ResourceTTL = %v, want 30m", cfg.ResourceTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.TracingEnabled {
		t.Fatalf("TracingEnabled = true, want false without OTLP endpoint")
	}
}

func TestLoadExplicitCapabilityURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("APP_BIND_ADDR", "localhost:9191")
	t.Setenv("CAPABILITY_BASE_URL", "https://edge.example.test/functions/v1/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CapabilityBaseURL != "https://edge.example.test/functions/v1" {
		t.Fatalf("CapabilityBaseURL = %q, want trimmed explicit value", cfg.CapabilityBaseURL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"bad provider":     {"AUTH_SECRET": "x", "SCRIPT_PROVIDER": "llama"},
		"bad duration":     {"AUTH_SECRET": "x", "GATEWAY_TIMEOUT": "soon"},
		"short ttl":        {"AUTH_SECRET": "x", "RESOURCE_TTL": "5s"},
		"short token ttl":  {"AUTH_SECRET": "x", "AUTH_TOKEN_TTL": "10s"},
		"bucketless s3":    {"AUTH_SECRET": "x", "S3_ENDPOINT": "minio:9000"},
		"bad bool":         {"AUTH_SECRET": "x", "S3_USE_SSL": "maybe"},
		"zero notices cap": {"AUTH_SECRET": "x", "MAX_NOTIFICATIONS": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("Load() error = nil, want error")
			}
		})
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	setCoreEnvEmpty(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AUTH_SECRET=from-file\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("LOG_LEVEL", "warn")
	os.Unsetenv("AUTH_SECRET")
	t.Cleanup(func() { os.Unsetenv("AUTH_SECRET") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("AUTH_SECRET"); got != "from-file" {
		t.Fatalf("AUTH_SECRET = %q, want %q", got, "from-file")
	}
	if got := os.Getenv("LOG_LEVEL"); got != "warn" {
		t.Fatalf("LOG_LEVEL = %q, want existing value kept", got)
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_CORS_ORIGINS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"AUTH_SECRET",
		"AUTH_TOKEN_TTL",
		"CAPABILITY_BASE_URL",
		"GATEWAY_TIMEOUT",
		"SCRIPT_PROVIDER",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"SCRIPT_MODEL",
		"ANTHROPIC_API_KEY",
		"ANTHROPIC_MODEL",
		"SPEECH_PROVIDER",
		"ELEVENLABS_API_KEY",
		"ELEVENLABS_BASE_URL",
		"ELEVENLABS_TTS_MODEL_ID",
		"OPENAI_TTS_MODEL",
		"DATABASE_URL",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_REGION",
		"S3_USE_SSL",
		"RESOURCE_TTL",
		"GENERATION_RATE_PER_MIN",
		"MAX_NOTIFICATIONS",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
