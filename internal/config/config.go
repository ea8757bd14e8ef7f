package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DBUrl              string
	JWTSecret          string
	AppEnv             string
	CORSAllowedOrigins string
	EnableDocs         bool

	SupabaseURL        string
	SupabaseBucket     string
	SupabaseServiceKey string

	RedisURL string

	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	CalendlyAPIURL string
	CalendlyToken  string

	ImportMaxFileMB      int
	ImportMaxRows        int
	FreePlanEntryLimit   int
	AdminRateLimitPerMin int

	SchedulerSpec   string
	SchedulerAPIURL string
	SchedulerToken  string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		DBUrl:                getEnv("DB_URL", ""),
		JWTSecret:            jwtSecret,
		AppEnv:               normalizeEnv(getEnv("APP_ENV", "production")),
		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),
		EnableDocs:           getEnvBool("ENABLE_API_DOCS", false),
		SupabaseURL:          getEnv("SUPABASE_URL", ""),
		SupabaseBucket:       getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey:   getEnv("SUPABASE_SERVICE_KEY", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		EmailAPIURL:          getEnv("EMAIL_API_URL", ""),
		EmailAPIKey:          getEnv("EMAIL_API_KEY", ""),
		EmailFrom:            getEnv("EMAIL_FROM", ""),
		VAPIDPublicKey:       getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:      getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:         getEnv("VAPID_SUBJECT", ""),
		CalendlyAPIURL:       getEnv("CALENDLY_API_URL", "https://api.calendly.com"),
		CalendlyToken:        getEnv("CALENDLY_TOKEN", ""),
		ImportMaxFileMB:      getEnvInt("IMPORT_MAX_FILE_MB", 10),
		ImportMaxRows:        getEnvInt("IMPORT_MAX_ROWS", 5000),
		FreePlanEntryLimit:   getEnvInt("FREE_PLAN_ENTRY_LIMIT", 10),
		AdminRateLimitPerMin: getEnvInt("ADMIN_RATE_LIMIT_PER_MIN", 20),
		SchedulerSpec:        getEnv("SCHEDULER_SPEC", "@every 5m"),
		SchedulerAPIURL:      getEnv("SCHEDULER_API_URL", "http://localhost:8080"),
		SchedulerToken:       getEnv("SCHEDULER_TOKEN", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func (c *Config) StorageEnabled() bool {
	return c != nil && c.SupabaseURL != "" && c.SupabaseBucket != "" && c.SupabaseServiceKey != ""
}

func (c *Config) EmailEnabled() bool {
	return c != nil && c.EmailAPIURL != "" && c.EmailAPIKey != "" && c.EmailFrom != ""
}

func (c *Config) PushEnabled() bool {
	return c != nil && c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func (c *Config) CalendlyEnabled() bool {
	return c != nil && c.CalendlyToken != ""
}

// DebugLogging reports whether LOG_DEBUG asks for verbose service logs.
func (c *Config) DebugLogging() bool {
	return getEnvBool("LOG_DEBUG", c != nil && c.IsDevelopment())
}

func (c *Config) ImportMaxBytes() int64 {
	return int64(c.ImportMaxFileMB) << 20
}
