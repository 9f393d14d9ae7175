package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the content studio service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string
	LogFormat        string
	TracingEnabled   bool

	CORSAllowedOrigins   []string
	GenerationRatePerMin int

	AuthSecret   string
	AuthTokenTTL time.Duration

	CapabilityBaseURL string
	GatewayTimeout    time.Duration

	ScriptProvider  string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ScriptModel     string
	AnthropicAPIKey string
	AnthropicModel  string

	SpeechProvider    string
	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	ElevenLabsModel   string
	OpenAITTSModel    string

	DatabaseURL string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	ResourceTTL      time.Duration
	MaxNotifications int
}

// LoadDotEnv merges variables from the given files (default ".env") into the process
// environment without overriding values that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "reelstudio"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		TracingEnabled:     stringsTrimSpace("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
		CORSAllowedOrigins: splitList(envOrDefault("APP_CORS_ORIGINS", "*")),
		AuthSecret:         stringsTrimSpace("AUTH_SECRET"),
		CapabilityBaseURL:  stringsTrimSpace("CAPABILITY_BASE_URL"),
		ScriptProvider:     envOrDefault("SCRIPT_PROVIDER", "auto"),
		OpenAIAPIKey:       stringsTrimSpace("OPENAI_API_KEY"),
		// Any OpenAI-compatible chat gateway works here.
		OpenAIBaseURL:     stringsTrimSpace("OPENAI_BASE_URL"),
		ScriptModel:       envOrDefault("SCRIPT_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:   stringsTrimSpace("ANTHROPIC_API_KEY"),
		AnthropicModel:    envOrDefault("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
		SpeechProvider:    envOrDefault("SPEECH_PROVIDER", "auto"),
		ElevenLabsAPIKey:  stringsTrimSpace("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL: envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsModel:   envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),
		OpenAITTSModel:    envOrDefault("OPENAI_TTS_MODEL", "tts-1"),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		S3Endpoint:        stringsTrimSpace("S3_ENDPOINT"),
		S3AccessKey:       stringsTrimSpace("S3_ACCESS_KEY"),
		S3SecretKey:       stringsTrimSpace("S3_SECRET_KEY"),
		S3Bucket:          stringsTrimSpace("S3_BUCKET"),
		S3Region:          stringsTrimSpace("S3_REGION"),
		S3UseSSL:          true,

		AuthTokenTTL:         24 * time.Hour,
		ShutdownTimeout:      15 * time.Second,
		GatewayTimeout:       60 * time.Second,
		ResourceTTL:          30 * time.Minute,
		GenerationRatePerMin: 20,
		MaxNotifications:     50,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AuthTokenTTL, err = durationFromEnv("AUTH_TOKEN_TTL", cfg.AuthTokenTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.GatewayTimeout, err = durationFromEnv("GATEWAY_TIMEOUT", cfg.GatewayTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ResourceTTL, err = durationFromEnv("RESOURCE_TTL", cfg.ResourceTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationRatePerMin, err = intFromEnv("GENERATION_RATE_PER_MIN", cfg.GenerationRatePerMin)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxNotifications, err = intFromEnv("MAX_NOTIFICATIONS", cfg.MaxNotifications)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL, err = boolFromEnv("S3_USE_SSL", cfg.S3UseSSL)
	if err != nil {
		return Config{}, err
	}

	if cfg.CapabilityBaseURL == "" {
		cfg.CapabilityBaseURL = selfCapabilityURL(cfg.BindAddr)
	}
	cfg.CapabilityBaseURL = strings.TrimRight(cfg.CapabilityBaseURL, "/")

	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("AUTH_SECRET is required")
	}
	if cfg.AuthTokenTTL < time.Minute {
		return Config{}, fmt.Errorf("AUTH_TOKEN_TTL must be at least 1m")
	}
	if cfg.GatewayTimeout < time.Second {
		return Config{}, fmt.Errorf("GATEWAY_TIMEOUT must be at least 1s")
	}
	if cfg.ResourceTTL < time.Minute {
		return Config{}, fmt.Errorf("RESOURCE_TTL must be at least 1m")
	}
	if cfg.GenerationRatePerMin < 0 {
		return Config{}, fmt.Errorf("GENERATION_RATE_PER_MIN must be >= 0")
	}
	if cfg.MaxNotifications <= 0 {
		return Config{}, fmt.Errorf("MAX_NOTIFICATIONS must be positive")
	}
	if err := oneOf("SCRIPT_PROVIDER", cfg.ScriptProvider, "auto", "openai", "anthropic", "mock"); err != nil {
		return Config{}, err
	}
	if err := oneOf("SPEECH_PROVIDER", cfg.SpeechProvider, "auto", "elevenlabs", "openai", "mock"); err != nil {
		return Config{}, err
	}
	if cfg.S3Endpoint != "" && cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("S3_BUCKET is required when S3_ENDPOINT is set")
	}

	return cfg, nil
}

// selfCapabilityURL points the gateway at the capability routes served by this process.
func selfCapabilityURL(bindAddr string) string {
	host, port, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return "http://127.0.0.1:8080/functions/v1"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/functions/v1"
}

func oneOf(key, value string, allowed ...string) error {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %q (expected %s)", key, value, strings.Join(allowed, "|"))
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
