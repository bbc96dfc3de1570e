package config

import (
	"os"
	"strconv"
)

// Config holds every tunable the pipeline needs. Loaded once at startup and
// injected into services; secrets are never read from the environment again
// after boot.
type Config struct {
	DatabaseURL   string
	SessionSecret string

	// EditTokenSecret keys the HMAC over anonymous edit tokens.
	EditTokenSecret  string
	EditTokenTTLDays int

	// Rolling-window submission limits (24h window).
	SubmitLimitPerIP          int
	SubmitLimitPerBuilding    int
	SubmitLimitPerFingerprint int

	// Math captcha for anonymous submitters. Logged-in users skip it.
	CaptchaEnabled bool

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	SiteURL string
	Port    string
}

// Load reads configuration from the environment with the same fallbacks the
// rest of the app expects in local development.
func Load() *Config {
	return &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SessionSecret: getEnv("SESSION_SECRET", "secret_key_change_me"),

		EditTokenSecret:  getEnv("EDIT_TOKEN_SECRET", "edit_token_secret_change_me"),
		EditTokenTTLDays: getEnvInt("EDIT_TOKEN_TTL_DAYS", 14),

		SubmitLimitPerIP:          getEnvInt("SUBMIT_LIMIT_IP", 5),
		SubmitLimitPerBuilding:    getEnvInt("SUBMIT_LIMIT_BUILDING", 5),
		SubmitLimitPerFingerprint: getEnvInt("SUBMIT_LIMIT_FINGERPRINT", 3),

		CaptchaEnabled: getEnv("CAPTCHA_ENABLED", "true") == "true",

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: os.Getenv("SMTP_PORT"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		SiteURL: getEnv("SITE_URL", "http://localhost:8080"),
		Port:    getEnv("PORT", "8080"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
