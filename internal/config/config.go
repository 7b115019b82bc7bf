package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath         string
	SharedDir      string
	HubDir         string
	SubmissionsDir string
	OutputDir      string
	TempDir        string
	ProcessedDir   string
	RawMailDir     string

	EmbedAPIBaseURL   string
	EmbedAPIToken     string
	EmbedModel        string
	EmbedRateLimitRPS int
	EmbedTimeoutMs    int
	EmbedBatchSize    int

	// Each-cost ratio review bands. Pairs outside (low, high) get flagged.
	RatioCrossLow  float64
	RatioCrossHigh float64
	RatioSameLow   float64
	RatioSameHigh  float64

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	IntakeProvider     string
	IntakeLabel        string
	IntakeIntervalSec  int
	IntakeFetchMax     int
	IntakeLookbackDays int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	dataRoot := getEnv("DATA_DIR", filepath.Join(cwd, "data"))

	cfg := Config{
		DBPath:         getEnv("DB_PATH", filepath.Join(dataRoot, "app.db")),
		SharedDir:      getEnv("SHARED_DIR", filepath.Join(dataRoot, "shared")),
		HubDir:         getEnv("HUB_DIR", filepath.Join(dataRoot, "hub")),
		SubmissionsDir: getEnv("SUBMISSIONS_DIR", filepath.Join(dataRoot, "submissions")),
		OutputDir:      getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		TempDir:        getEnv("TEMP_DIR", filepath.Join(dataRoot, "temp")),
		ProcessedDir:   getEnv("PROCESSED_DIR", filepath.Join(dataRoot, "processed")),
		RawMailDir:     getEnv("MAIL_RAW_DIR", filepath.Join(dataRoot, "raw")),

		EmbedAPIBaseURL:   getEnv("EMBED_API_BASE_URL", ""),
		EmbedAPIToken:     getEnv("EMBED_API_TOKEN", ""),
		EmbedModel:        getEnv("EMBED_MODEL", "text-embedding-3-small"),
		EmbedRateLimitRPS: getEnvInt("EMBED_RATE_LIMIT_RPS", 5),
		EmbedTimeoutMs:    getEnvInt("EMBED_TIMEOUT_MS", 30000),
		EmbedBatchSize:    getEnvInt("EMBED_BATCH_SIZE", 64),

		RatioCrossLow:  getEnvFloat("RATIO_CROSS_LOW", 0.5),
		RatioCrossHigh: getEnvFloat("RATIO_CROSS_HIGH", 2.0),
		RatioSameLow:   getEnvFloat("RATIO_SAME_LOW", 0.65),
		RatioSameHigh:  getEnvFloat("RATIO_SAME_HIGH", 1.5),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		IntakeProvider:     getEnv("INTAKE_PROVIDER", "imap"),
		IntakeLabel:        getEnv("INTAKE_LABEL", "INBOX"),
		IntakeIntervalSec:  getEnvInt("INTAKE_INTERVAL_SEC", 60),
		IntakeFetchMax:     getEnvInt("INTAKE_FETCH_MAX", 20),
		IntakeLookbackDays: getEnvInt("INTAKE_LOOKBACK_DAYS", 30),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
