package config

import (
	"os"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "RECENCY_"

// FromEnv returns a Config holding only the values set in the environment
// (RECENCY_URL, RECENCY_ITEMS, ...). Unset variables leave zero values so
// the result can be merged over a file config with MergeWithDefaults.
func FromEnv() Config {
	cfg := Config{
		URL:               getEnvString(EnvPrefix+"URL", ""),
		ResponseHost:      getEnvString(EnvPrefix+"RESPONSE_HOST", ""),
		ItemsToCheck:      getEnvInt(EnvPrefix+"ITEMS", 0),
		Engine:            getEnvString(EnvPrefix+"ENGINE", ""),
		Mode:              getEnvString(EnvPrefix+"MODE", ""),
		PageSize:          getEnvInt(EnvPrefix+"PAGE_SIZE", 0),
		NextSelector:      getEnvString(EnvPrefix+"NEXT_SELECTOR", ""),
		NavigationTimeout: Duration(getEnvDuration(EnvPrefix+"NAV_TIMEOUT", 0)),
		RemoteURL:         getEnvString(EnvPrefix+"REMOTE_URL", ""),
		Format:            getEnvString(EnvPrefix+"FORMAT", ""),
		Verbose:           getEnvBool(EnvPrefix+"VERBOSE", false),
	}
	if value := os.Getenv(EnvPrefix + "HEADLESS"); value != "" {
		if headless, err := strconv.ParseBool(value); err == nil {
			cfg.Headless = &headless
		}
	}
	return cfg
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
