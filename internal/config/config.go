// Package config provides application configuration and the rule tables that
// drive tag normalization, consolidation, and validation.
package config

import (
	"bufio"
	"os"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Rules    RulesConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Path string
}

// RulesConfig holds rule-table configuration.
type RulesConfig struct {
	// Path to a YAML rules file overriding the built-in tables.
	// Empty means built-in defaults only.
	Path string
	// Watch enables hot reload of the rules file.
	Watch bool
}

// Load builds the configuration from environment variables, reading an
// optional .env file first. Values already present in the environment win
// over .env entries.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// Silently ignore a missing .env file.
	_ = loadEnvFile(envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", defaultDBPath()),
		},
		Rules: RulesConfig{
			Path:  getEnv("RULES_PATH", ""),
			Watch: getBoolEnv("RULES_WATCH", false),
		},
	}

	return cfg, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cratekeeper.db"
	}
	return home + "/.cratekeeper/catalog.db"
}

// loadEnvFile reads KEY=VALUE pairs into the process environment.
// Existing environment variables are not overwritten.
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
