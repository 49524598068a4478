package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	ServiceName          string
	OBPBaseURL           string
	OBPAPIVersion        string
	OpeyBaseURL          string
	ConsentBankID        string
	ConsentConsumerID    string
	SigningKeyPath       string
	OpeyTokenTTL         time.Duration
	UpstreamTimeout      time.Duration
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	SessionTTL           time.Duration
	SessionCookie        string
	SessionPrefix        string
	RateLimitRPM         int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	obpBaseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("OBP_BASE_URL")), "/")
	if obpBaseURL == "" {
		return Config{}, fmt.Errorf("OBP_BASE_URL is required")
	}
	opeyBaseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("OPEY_BASE_URL")), "/")
	if opeyBaseURL == "" {
		return Config{}, fmt.Errorf("OPEY_BASE_URL is required")
	}

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8085"),
		ServiceName:          getEnv("SERVICE_NAME", "opey-gateway"),
		OBPBaseURL:           obpBaseURL,
		OBPAPIVersion:        getEnv("OBP_API_VERSION", "v5.1.0"),
		OpeyBaseURL:          opeyBaseURL,
		ConsentBankID:        getEnv("CONSENT_BANK_ID", "gh.29.uk"),
		ConsentConsumerID:    getEnv("CONSENT_CONSUMER_ID", "33e0a1bd-9f1d-4128-911b-8936110f802f"),
		SigningKeyPath:       getEnv("SIGNING_KEY_PATH", "server/cert/private_key.pem"),
		OpeyTokenTTL:         getDuration("OPEY_TOKEN_TTL", time.Hour),
		UpstreamTimeout:      getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		SessionTTL:           getDuration("SESSION_TTL", 5*time.Minute),
		SessionCookie:        getEnv("SESSION_COOKIE", "opey_session"),
		SessionPrefix:        getEnv("SESSION_PREFIX", "api-explorer:"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 5 * time.Minute
	}

	return cfg, nil
}

// Production reports whether the gateway runs with production settings,
// which among other things makes the session cookie Secure.
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
