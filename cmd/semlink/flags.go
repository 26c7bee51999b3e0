package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Commands understood by the CLI
const (
	cmdTransform = "transform"
	cmdResolve   = "resolve"
	cmdValidate  = "validate"
	cmdServe     = "serve"
	cmdVersion   = "version"
	cmdHelp      = "help"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Command         string
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Input           string
	Context         string
	Output          string
	Type            string
	Port            int
	ShutdownTimeout time.Duration
	// Args are the positional arguments left after flag parsing.
	Args []string
}

func parseFlags(command string, args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{Command: command}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("SEMLINK_CONFIG", ""),
		"Path to configuration file (env: SEMLINK_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("SEMLINK_CONFIG", ""),
		"Path to configuration file (env: SEMLINK_CONFIG)")
	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SEMLINK_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: SEMLINK_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SEMLINK_LOG_FORMAT", ""),
		"Log format: json, text (env: SEMLINK_LOG_FORMAT)")

	switch command {
	case cmdTransform:
		fs.StringVar(&cfg.Input, "in", "-", "Input document, - for stdin")
		fs.StringVar(&cfg.Context, "context", "", "Target context file or registered context name")
		fs.StringVar(&cfg.Output, "out", "-", "Output file, - for stdout")
	case cmdResolve:
		fs.StringVar(&cfg.Type, "type", "", "Expected entity type of the identifiers")
	case cmdServe:
		fs.IntVar(&cfg.Port, "port",
			getEnvInt("SEMLINK_PORT", 0),
			"HTTP port, 0 uses metrics.port from the configuration (env: SEMLINK_PORT)")
		fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
			getEnvDuration("SEMLINK_SHUTDOWN_TIMEOUT", 10*time.Second),
			"Graceful shutdown timeout (env: SEMLINK_SHUTDOWN_TIMEOUT)")
	}

	fs.Usage = func() {
		printDetailedHelp(stderr)
		_, _ = fmt.Fprintf(stderr, "\nOptions for %s:\n", command)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Args = fs.Args()
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	switch cfg.Command {
	case cmdTransform:
		if cfg.Context == "" {
			return fmt.Errorf("transform needs -context")
		}
	case cmdResolve:
		if cfg.ConfigPath == "" {
			return fmt.Errorf("resolve needs -config")
		}
		if len(cfg.Args) == 0 {
			return fmt.Errorf("resolve needs at least one identifier")
		}
	case cmdValidate, cmdServe:
		if cfg.ConfigPath == "" {
			return fmt.Errorf("%s needs -config", cfg.Command)
		}
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	return nil
}

func printDetailedHelp(w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - linked-data entities, resolvers and vocabulary transforms

Usage: %s <command> [options]

Commands:
  transform   Rewrite a document under another context
  resolve     Resolve identifiers through the configured resolvers
  validate    Check a configuration, its contexts and schemas
  serve       Run the HTTP resolve and transform endpoints
  version     Show version information

Examples:
  # Transform a document to the schema.org vocabulary
  %s transform -in person.json -context schema-org.json

  # Resolve identifiers with debug logging
  %s resolve -config semlink.json -log-level=debug demo:alice demo:bob

  # Serve with environment variables
  export SEMLINK_CONFIG=/etc/semlink/semlink.json
  export SEMLINK_PORT=9090
  %s serve

Version: %s
Build: %s
`, appName, appName, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
