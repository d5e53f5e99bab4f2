package config

import (
	"os"
	"strconv"
	"time"

	"cepop/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Store     StoreConfig
	Simulator SimulatorConfig
	Sweep     SweepConfig
	Analysis  AnalysisConfig
	Server    ServerConfig
}

// StoreConfig selects where job records persist. DatabaseURL takes
// precedence over the JSON file when both are set.
type StoreConfig struct {
	Path        string
	DatabaseURL string
}

// SimulatorConfig describes the external population-synthesis command
type SimulatorConfig struct {
	Program     string
	ArtifactDir string
}

// SweepConfig holds the orchestration policy
type SweepConfig struct {
	MaxAttempts int
	StopOnError bool
	JobTimeout  time.Duration
}

// AnalysisConfig holds the statistical settings
type AnalysisConfig struct {
	BootstrapIterations int
	Confidence          float64
	Seed                int64
}

// ServerConfig holds the status server settings
type ServerConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Store: StoreConfig{
			Path:        getEnvOrDefault("CEPOP_STORE_PATH", "sweep_progress.json"),
			DatabaseURL: getEnvOrDefault("CEPOP_DATABASE_URL", ""),
		},
		Simulator: SimulatorConfig{
			Program:     getEnvOrDefault("CEPOP_SIM_COMMAND", "run_population"),
			ArtifactDir: getEnvOrDefault("CEPOP_ARTIFACT_DIR", "data"),
		},
		Sweep: SweepConfig{
			MaxAttempts: getEnvIntOrDefault("CEPOP_MAX_ATTEMPTS", 3),
			StopOnError: getEnvBoolOrDefault("CEPOP_STOP_ON_ERROR", false),
			JobTimeout:  getEnvDurationOrDefault("CEPOP_JOB_TIMEOUT", 2*time.Hour),
		},
		Analysis: AnalysisConfig{
			BootstrapIterations: getEnvIntOrDefault("CEPOP_BOOT_ITERATIONS", 10000),
			Confidence:          getEnvFloatOrDefault("CEPOP_CONFIDENCE", 0.95),
			Seed:                int64(getEnvIntOrDefault("CEPOP_SEED", 42)),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("CEPOP_STATUS_PORT", "8080"),
			Enabled: getEnvBoolOrDefault("CEPOP_STATUS_ENABLED", false),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Store.Path == "" && config.Store.DatabaseURL == "" {
		return errors.ConfigInvalid("either CEPOP_STORE_PATH or CEPOP_DATABASE_URL is required")
	}
	if config.Simulator.Program == "" {
		return errors.ConfigInvalid("CEPOP_SIM_COMMAND cannot be empty")
	}
	if config.Sweep.MaxAttempts < 1 {
		return errors.ConfigInvalid("CEPOP_MAX_ATTEMPTS must be at least 1")
	}
	if config.Analysis.BootstrapIterations < 1 {
		return errors.ConfigInvalid("CEPOP_BOOT_ITERATIONS must be at least 1")
	}
	if config.Analysis.Confidence <= 0 || config.Analysis.Confidence >= 1 {
		return errors.ConfigInvalid("CEPOP_CONFIDENCE must be in (0, 1)")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
