package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("FLOWCANVAS_CONFIG", ""),
		"Path to configuration file (env: FLOWCANVAS_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("FLOWCANVAS_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: FLOWCANVAS_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("FLOWCANVAS_LOG_FORMAT", ""),
		"Log format: json, text (env: FLOWCANVAS_LOG_FORMAT)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("FLOWCANVAS_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: FLOWCANVAS_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printHelp

	flag.Parse()
	return cfg
}

func printHelp() {
	fmt.Fprintf(os.Stderr, "%s - backend for the visual flow editor\n\n", appName)
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nFlags:\n", appName)
	flag.PrintDefaults()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
