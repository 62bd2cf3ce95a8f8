package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the server settings. The API credential is not part of it:
// handlers read it per request through credential.Loader.
type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	// EnvFile is re-read by the credential loader on every request.
	EnvFile string

	OpenAIBaseURL  string
	TextModel      string
	ImageModel     string
	ProbeTimeoutMs int

	// Comma separated; empty keeps the JSON API same-origin only
	CORSAllowedOrigins string

	// Optional basic auth gate in front of the page
	AccessUser         string
	AccessPasswordHash string

	OTELEndpoint string
	OTELEnabled  bool
}

// Load builds the Config from the process environment, falling back to the
// values in envFile. The file is only read; the process environment is never
// modified, so the credential loader still sees later edits to the file.
func Load(envFile string) (*Config, error) {
	src := source{}
	if envFile != "" {
		// Missing file is fine, the process environment alone is a valid setup
		values, err := godotenv.Read(envFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read .env file: %w", err)
		}
		src.file = values
	}

	cfg := &Config{
		AppEnv:   src.getEnv("APP_ENV", "development"),
		AppPort:  src.getEnv("APP_PORT", "8501"),
		LogLevel: src.getEnv("LOG_LEVEL", "info"),

		EnvFile: src.getEnv("ENV_FILE", envFile),

		OpenAIBaseURL:  src.getEnv("OPENAI_BASE_URL", ""),
		TextModel:      src.getEnv("TEXT_MODEL", "gpt-4o-mini"),
		ImageModel:     src.getEnv("IMAGE_MODEL", "gpt-image-1"),
		ProbeTimeoutMs: src.getEnvInt("PROBE_TIMEOUT_MS", 0),

		CORSAllowedOrigins: src.getEnv("CORS_ALLOWED_ORIGINS", ""),

		AccessUser:         src.getEnv("ACCESS_USER", ""),
		AccessPasswordHash: src.getEnv("ACCESS_PASSWORD_HASH", ""),

		OTELEndpoint: src.getEnv("OTEL_ENDPOINT", ""),
		OTELEnabled:  src.getEnvBool("OTEL_ENABLED", false),
	}

	if cfg.ProbeTimeoutMs < 0 {
		return nil, fmt.Errorf("invalid PROBE_TIMEOUT_MS %d: must not be negative", cfg.ProbeTimeoutMs)
	}
	if (cfg.AccessUser == "") != (cfg.AccessPasswordHash == "") {
		return nil, fmt.Errorf("ACCESS_USER and ACCESS_PASSWORD_HASH must be set together")
	}

	return cfg, nil
}

// AccessGateEnabled reports whether basic auth protects the page.
func (c *Config) AccessGateEnabled() bool {
	return c.AccessUser != "" && c.AccessPasswordHash != ""
}

// AllowedOrigins splits CORSAllowedOrigins into its entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// source looks a key up in the process environment first, then in the
// values read from the .env file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) getEnvInt(key string, defaultValue int) int {
	strValue := s.lookup(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s source) getEnvBool(key string, defaultValue bool) bool {
	strValue := s.lookup(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}
