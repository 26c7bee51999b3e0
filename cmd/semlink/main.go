// Package main implements the semlink command: document transformation,
// identifier resolution, configuration checks and an HTTP server exposing
// both operations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/semlink/config"
	"github.com/c360/semlink/graph"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semlink"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		slog.Error("Command failed", "error", err, "exit_code", 1)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printDetailedHelp(stderr)
		return fmt.Errorf("missing command")
	}

	command := args[0]
	switch command {
	case cmdVersion, "-version", "--version", "-v":
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	case cmdHelp, "-help", "--help", "-h":
		printDetailedHelp(stdout)
		return nil
	case cmdTransform, cmdResolve, cmdValidate, cmdServe:
	default:
		printDetailedHelp(stderr)
		return fmt.Errorf("unknown command: %s", command)
	}

	cliCfg, cfg, logger, err := initializeCLI(command, args[1:], stderr)
	if err != nil {
		return err
	}

	switch command {
	case cmdTransform:
		return runTransform(cliCfg, cfg, logger, stdin, stdout)
	case cmdResolve:
		return runResolve(ctx, cliCfg, cfg, logger, stdout)
	case cmdValidate:
		return runValidate(cfg, logger, stdout)
	default:
		return runServe(ctx, cliCfg, cfg, logger)
	}
}

// initializeCLI parses flags, loads the configuration and sets up logging.
// Flags override the log settings of the configuration.
func initializeCLI(command string, args []string, stderr io.Writer) (*CLIConfig, *config.Config, *slog.Logger, error) {
	cliCfg, err := parseFlags(command, args, stderr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid flags: %w", err)
	}

	cfg := config.Default()
	if cliCfg.ConfigPath != "" {
		if cfg, err = loadConfig(cliCfg.ConfigPath); err != nil {
			return nil, nil, nil, err
		}
	}
	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	slog.SetDefault(logger)

	logger.Debug("Starting semlink",
		"command", command,
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, cfg, logger, nil
}

func runTransform(cliCfg *CLIConfig, cfg *config.Config, logger *slog.Logger, stdin io.Reader, stdout io.Writer) error {
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	in := stdin
	if cliCfg.Input != "-" {
		f, err := os.Open(cliCfg.Input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	doc, err := graph.ParseDocument(data)
	if err != nil {
		return err
	}

	out, err := a.transform(doc, cliCfg.Context)
	if err != nil {
		return err
	}

	w := stdout
	if cliCfg.Output != "-" {
		f, err := os.Create(cliCfg.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeJSON(w, out)
}

func runResolve(ctx context.Context, cliCfg *CLIConfig, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	if err := a.open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Closing backends failed", "error", err)
		}
	}()

	nodes, resolveErr := a.resolve(ctx, cliCfg.Args, cliCfg.Type)
	if nodes != nil {
		if err := writeJSON(stdout, nodes); err != nil {
			return err
		}
	}
	return resolveErr
}

// runValidate checks the configuration, its contexts and schemas, and the
// backend names without opening any backend.
func runValidate(cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "configuration is valid: %d contexts, %d types, %d resolvers\n",
		len(a.vocab.Names()), len(a.types.Types()), len(cfg.Resolvers))
	return nil
}

// loadConfig loads configuration from the specified file path
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(true)
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
