// Package config provides runtime configuration for the aqljon daemon.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all tunable settings with documented defaults.
type Config struct {
	// Admission and sequencing
	GateCapacity    int // concurrent analysis calls across all users
	BacklogCapacity int // outstanding jobs per user

	// Session memory
	HistoryCapacity int           // conversation turns kept per user
	ContentCapacity int           // content-memory entries kept per user
	IdleThreshold   time.Duration // idle time before a session is evicted
	SessionCap      int           // total tracked sessions
	SweepInterval   time.Duration // how often the sweeper runs

	// Analysis backend
	GeminiAPIKey        string
	GeminiModel         string
	GeminiFallbackModel string
	MediaTimeout        time.Duration // photo and voice analysis bound
	HeavyTimeout        time.Duration // document and video analysis bound
	RetryAttempts       int

	// Dashboard
	DashboardAddr string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables, falling back to
// defaults.
func Load() *Config {
	return &Config{
		GateCapacity:    getEnvInt("GATE_CAPACITY", 2),
		BacklogCapacity: getEnvInt("BACKLOG_CAPACITY", 5),

		HistoryCapacity: getEnvInt("HISTORY_CAPACITY", 40),
		ContentCapacity: getEnvInt("CONTENT_CAPACITY", 50),
		IdleThreshold:   getEnvDuration("IDLE_THRESHOLD", 30*24*time.Hour),
		SessionCap:      getEnvInt("SESSION_CAP", 2000),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", time.Hour),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiFallbackModel: getEnv("GEMINI_FALLBACK_MODEL", "gemini-1.5-flash"),
		MediaTimeout:        getEnvDuration("MEDIA_TIMEOUT", 15*time.Second),
		HeavyTimeout:        getEnvDuration("HEAVY_TIMEOUT", 30*time.Second),
		RetryAttempts:       getEnvInt("RETRY_ATTEMPTS", 3),

		DashboardAddr: getEnv("DASHBOARD_ADDR", ":8080"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks settings that have no usable fallback.
func (c *Config) Validate() error {
	if c.GateCapacity < 1 {
		return fmt.Errorf("gate capacity must be at least 1")
	}
	if c.BacklogCapacity < 1 {
		return fmt.Errorf("backlog capacity must be at least 1")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
