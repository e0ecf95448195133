package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config is the server configuration, read from the environment.
type Config struct {
	HTTP struct {
		Addr        string
		CORSOrigins []string
		MaxUploadMB int
	}
	LLM struct {
		BaseURL    string
		UserAgent  string
		APIKey     string
		RatePerSec float64
		RateBurst  int
	}
	Log struct {
		Level  string
		Format string
	}
	SessionTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8001")
	cfg.HTTP.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	cfg.HTTP.MaxUploadMB = parseInt(getEnv("MAX_UPLOAD_MB", "20"), 20)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1")
	cfg.LLM.UserAgent = getEnv("LLM_USER_AGENT", "quality-dashboard/1.0")
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", "")
	cfg.LLM.RatePerSec = parseFloat(getEnv("LLM_RATE_PER_SEC", "1"), 1)
	cfg.LLM.RateBurst = parseInt(getEnv("LLM_RATE_BURST", "3"), 3)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.SessionTTL = parseDuration(getEnv("SESSION_TTL", "2h"), 2*time.Hour)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	return validation.Errors{
		"HTTP_ADDR":        validation.Validate(c.HTTP.Addr, validation.Required),
		"CORS_ORIGINS":     validation.Validate(c.HTTP.CORSOrigins, validation.Required, validation.Each(validation.By(validateOrigin))),
		"MAX_UPLOAD_MB":    validation.Validate(c.HTTP.MaxUploadMB, validation.Required, validation.Min(1), validation.Max(512)),
		"LLM_BASE_URL":     validation.Validate(c.LLM.BaseURL, validation.Required, is.URL),
		"LLM_USER_AGENT":   validation.Validate(c.LLM.UserAgent, validation.Required),
		"LLM_RATE_PER_SEC": validation.Validate(c.LLM.RatePerSec, validation.Required, validation.Min(0.01)),
		"LLM_RATE_BURST":   validation.Validate(c.LLM.RateBurst, validation.Required, validation.Min(1)),
		"LOG_LEVEL":        validation.Validate(c.Log.Level, validation.In("debug", "info", "warn", "error")),
		"LOG_FORMAT":       validation.Validate(c.Log.Format, validation.In("json", "console")),
		"SESSION_TTL":      validation.Validate(c.SessionTTL, validation.Min(time.Duration(0))),
	}.Filter()
}

func validateOrigin(value interface{}) error {
	origin, _ := value.(string)
	if origin == "*" {
		return nil
	}
	return is.URL.Validate(origin)
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.HTTP.MaxUploadMB) << 20
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
