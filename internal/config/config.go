package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// WhatsApp provider selection: none, cloud-api, or bridge.
	WhatsAppProvider    string
	AdminWhatsAppNumber string
	DefaultCountryCode  string

	CloudAPIAccessToken   string
	CloudAPIPhoneNumberID string
	CloudAPIVersion       string
	CloudAPIVerifyToken   string
	CloudAPIAppSecret     string

	BridgeAccountSID string
	BridgeAuthToken  string
	BridgeFromNumber string

	ReservationTemplateName string
	SendTimeout             time.Duration

	GeminiAPIKey string
	GeminiModel  string

	SessionTTL        time.Duration
	SessionMaxEntries int

	JWTSecret string

	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		WhatsAppProvider:    strings.ToLower(strings.TrimSpace(getEnv("WHATSAPP_PROVIDER", "none"))),
		AdminWhatsAppNumber: getEnv("RESERVATION_WHATSAPP_NUMBER", ""),
		DefaultCountryCode:  getEnv("WHATSAPP_DEFAULT_COUNTRY_CODE", "91"),

		CloudAPIAccessToken:   getEnv("WHATSAPP_CLOUD_ACCESS_TOKEN", ""),
		CloudAPIPhoneNumberID: getEnv("WHATSAPP_CLOUD_PHONE_NUMBER_ID", ""),
		CloudAPIVersion:       getEnv("WHATSAPP_CLOUD_API_VERSION", "v20.0"),
		CloudAPIVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		CloudAPIAppSecret:     getEnv("WHATSAPP_CLOUD_APP_SECRET", ""),

		BridgeAccountSID: getEnv("WHATSAPP_BRIDGE_ACCOUNT_SID", ""),
		BridgeAuthToken:  getEnv("WHATSAPP_BRIDGE_AUTH_TOKEN", ""),
		BridgeFromNumber: getEnv("WHATSAPP_BRIDGE_FROM", ""),

		ReservationTemplateName: getEnv("WHATSAPP_RESERVATION_TEMPLATE_NAME", ""),
		SendTimeout:             getEnvAsDuration("WHATSAPP_SEND_TIMEOUT", 10*time.Second),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		SessionTTL:        getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SessionMaxEntries: getEnvAsInt("SESSION_MAX_ENTRIES", 10000),

		JWTSecret: getEnv("JWT_SECRET", ""),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// IsProduction reports whether the service runs with production error hygiene.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
