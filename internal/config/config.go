package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port        string
	DBDriver    string
	DatabaseURL string
	CORSOrigins []string
	LogLevel    string

	MatchMinScore        int
	MatchDateWindowDays  int
	MatchAmountTolerance decimal.Decimal

	ReportBucket string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		DBDriver:     strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		CORSOrigins:  splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		ReportBucket: os.Getenv("REPORT_BUCKET"),
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case "sqlite":
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "bookkeeping.db"
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	var err error
	if cfg.MatchMinScore, err = getInt("MATCH_MIN_SCORE", 5); err != nil {
		return nil, err
	}
	if cfg.MatchDateWindowDays, err = getInt("MATCH_DATE_WINDOW_DAYS", 30); err != nil {
		return nil, err
	}

	tolerance := getenv("MATCH_AMOUNT_TOLERANCE", "0.01")
	cfg.MatchAmountTolerance, err = decimal.NewFromString(tolerance)
	if err != nil || cfg.MatchAmountTolerance.IsNegative() {
		return nil, fmt.Errorf("invalid MATCH_AMOUNT_TOLERANCE %q", tolerance)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
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
