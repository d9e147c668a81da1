package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds environment-driven settings shared by the commands. Command
// flags use these values as defaults, so flags win.
type Config struct {
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	// ReportsDir is where the vendor's download tool drops the daily
	// S_D_<vendor>_<yyyymmdd>.txt files and rating feeds.
	ReportsDir string `env:"REPORTS_DIR" envDefault:"reports"`

	// RemapDir holds the optional field remap CSVs (fields_countries.csv,
	// fields_currencies.csv, fields_productTypes.csv, fields_promoCodes.csv).
	RemapDir string `env:"REMAP_DIR"`

	// OutputDir receives generated report files.
	OutputDir string `env:"OUTPUT_DIR" envDefault:"output"`

	VendorID  string   `env:"VENDOR_ID"`
	Apps      []string `env:"APPS" envSeparator:","`
	Countries []string `env:"COUNTRIES" envSeparator:","`
	DaysBack  int      `env:"DAYS_BACK" envDefault:"1"`

	WindowDays  int    `env:"WINDOW_DAYS" envDefault:"30"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	// Production switches zap to its production encoder.
	Production bool `env:"PRODUCTION"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	loadDotEnv(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE lines from path into the environment without
// overriding variables that are already set.
func loadDotEnv(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
