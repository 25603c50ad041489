package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalid marks configuration that cannot be used
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	// Analyzer Configuration
	Analyzer AnalyzerConfig

	// Log configuration
	LogLevel string

	// Watch Configuration
	Watch WatchConfig

	// Server Configuration
	Server ServerConfig
}

// AnalyzerConfig contains the report pipeline settings
type AnalyzerConfig struct {
	LogDir       string
	LogPattern   string // glob for rotated logs inside LogDir
	ReportDir    string
	ReportSize   int     // maximum number of rows in a report
	MaxErrorRate float64 // maximum tolerated percentage of unparseable lines
	TemplateDir  string  // overrides the embedded report template when set
	ConfigPath   string  // optional JSON config file
}

// WatchConfig contains the log directory watcher settings
type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration
}

// ServerConfig contains report server settings
type ServerConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Production bool
}

// fileConfig is the JSON config file layout. Absent keys keep their defaults.
type fileConfig struct {
	LogDir       *string  `json:"LOG_DIR"`
	ReportDir    *string  `json:"REPORT_DIR"`
	ReportSize   *int     `json:"REPORT_SIZE"`
	MaxErrorRate *float64 `json:"MAX_ERROR_RATE"`
}

// Load reads configuration from .env file, the optional JSON config file
// (CONFIG_PATH) and environment variables. Environment variables win over
// the config file, which wins over defaults.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Analyzer: AnalyzerConfig{
			LogDir:       "./log",
			LogPattern:   getEnv("LOG_PATTERN", "nginx-access-ui.log-*"),
			ReportDir:    "./reports",
			ReportSize:   1000,
			MaxErrorRate: 50,
			TemplateDir:  getEnv("REPORT_TEMPLATE_DIR", ""),
			ConfigPath:   getEnv("CONFIG_PATH", ""),
		},
		Watch: WatchConfig{
			Enabled:  getEnvAsBool("WATCH_ENABLED", false),
			Debounce: getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
		},
		Server: ServerConfig{
			Enabled:    getEnvAsBool("SERVER_ENABLED", false),
			Host:       getEnv("SERVER_HOST", "0.0.0.0"),
			Port:       getEnvAsInt("SERVER_PORT", 8080),
			Production: getEnvAsBool("SERVER_PRODUCTION", false),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Analyzer.ConfigPath != "" {
		if err := applyFile(&cfg.Analyzer, cfg.Analyzer.ConfigPath); err != nil {
			return nil, err
		}
	}

	cfg.Analyzer.LogDir = getEnv("LOG_DIR", cfg.Analyzer.LogDir)
	cfg.Analyzer.ReportDir = getEnv("REPORT_DIR", cfg.Analyzer.ReportDir)
	cfg.Analyzer.ReportSize = getEnvAsInt("REPORT_SIZE", cfg.Analyzer.ReportSize)
	cfg.Analyzer.MaxErrorRate = getEnvAsFloat("MAX_ERROR_RATE", cfg.Analyzer.MaxErrorRate)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a report run
func (c *Config) Validate() error {
	if c.Analyzer.LogDir == "" {
		return fmt.Errorf("%w: LOG_DIR is empty", ErrInvalid)
	}
	if c.Analyzer.ReportDir == "" {
		return fmt.Errorf("%w: REPORT_DIR is empty", ErrInvalid)
	}
	if c.Analyzer.ReportSize <= 0 {
		return fmt.Errorf("%w: REPORT_SIZE must be positive, got %d", ErrInvalid, c.Analyzer.ReportSize)
	}
	if c.Analyzer.MaxErrorRate < 0 || c.Analyzer.MaxErrorRate > 100 {
		return fmt.Errorf("%w: MAX_ERROR_RATE must be within [0, 100], got %v", ErrInvalid, c.Analyzer.MaxErrorRate)
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("%w: SERVER_PORT out of range: %d", ErrInvalid, c.Server.Port)
	}
	return nil
}

func applyFile(cfg *AnalyzerConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read config file: %v", ErrInvalid, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: failed to parse config file %s: %v", ErrInvalid, path, err)
	}

	if fc.LogDir != nil {
		cfg.LogDir = *fc.LogDir
	}
	if fc.ReportDir != nil {
		cfg.ReportDir = *fc.ReportDir
	}
	if fc.ReportSize != nil {
		cfg.ReportSize = *fc.ReportSize
	}
	if fc.MaxErrorRate != nil {
		cfg.MaxErrorRate = *fc.MaxErrorRate
	}
	return nil
}

// Helper functions to read environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
