package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	IntentoAPIKey        string
	IntentoBaseURL       string
	IntentoOperationsURL string
	IntentoRoutingURL    string

	TranslationProvider string
	TranslationRouting  string
	TargetLocale        string
	TranslationSync     bool
	SyncTokenCeiling    int
	PollQuiescence      time.Duration
	PollDelay           time.Duration
	PollMaxAttempts     int
	UnitConcurrency     int
	RecordTimeout       time.Duration
	FieldsConfigPath    string

	CatalogBaseURL      string
	CatalogClientID     string
	CatalogClientSecret string
	CatalogTenant       string
	CatalogPageSize     int
	WorkerPollInterval  time.Duration

	GeoIPDBPath string

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		IntentoAPIKey:        os.Getenv("INTENTO_API_KEY"),
		IntentoBaseURL:       getEnv("INTENTO_BASE_URL", "https://api.inten.to/ai/text/translate"),
		IntentoOperationsURL: getEnv("INTENTO_OPERATIONS_URL", "https://api.inten.to/operations/"),
		IntentoRoutingURL:    getEnv("INTENTO_ROUTING_URL", "https://api.inten.to/routing-designer/"),

		TranslationProvider: os.Getenv("TRANSLATION_PROVIDER"),
		TranslationRouting:  os.Getenv("TRANSLATION_ROUTING"),
		TargetLocale:        getEnv("TRANSLATION_TARGET_LOCALE", "es"),
		TranslationSync:     getEnvBool("TRANSLATION_SYNC", true),
		SyncTokenCeiling:    getEnvInt("TRANSLATION_SYNC_TOKEN_CEILING", 10000),
		PollQuiescence:      time.Second * time.Duration(getEnvInt("TRANSLATION_POLL_QUIESCENCE_SECONDS", 2)),
		PollDelay:           time.Second * time.Duration(getEnvInt("TRANSLATION_POLL_DELAY_SECONDS", 1)),
		PollMaxAttempts:     getEnvInt("TRANSLATION_POLL_MAX_ATTEMPTS", 10),
		UnitConcurrency:     getEnvInt("TRANSLATION_UNIT_CONCURRENCY", 4),
		RecordTimeout:       time.Second * time.Duration(getEnvInt("TRANSLATION_RECORD_TIMEOUT_SECONDS", 0)),
		FieldsConfigPath:    os.Getenv("TRANSLATION_FIELDS_PATH"),

		CatalogBaseURL:      os.Getenv("CATALOG_BASE_URL"),
		CatalogClientID:     os.Getenv("CATALOG_CLIENT_ID"),
		CatalogClientSecret: os.Getenv("CATALOG_CLIENT_SECRET"),
		CatalogTenant:       getEnv("CATALOG_TENANT", "MyApp"),
		CatalogPageSize:     getEnvInt("CATALOG_PAGE_SIZE", 50),
		WorkerPollInterval:  time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 300)),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins: splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.TranslationProvider != "" && cfg.TranslationRouting != "" {
		return nil, fmt.Errorf("TRANSLATION_PROVIDER and TRANSLATION_ROUTING are mutually exclusive")
	}

	return cfg, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
