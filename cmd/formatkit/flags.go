package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/c360/formatkit/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	Disabled        string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
}

// DisabledGroups splits the --disable list
func (c *CLIConfig) DisabledGroups() []string {
	var groups []string
	for _, g := range strings.Split(c.Disabled, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// parseFlags parses the global flags. fs.Args() holds the command name and
// its arguments.
func parseFlags(args []string, out io.Writer) (*CLIConfig, *flag.FlagSet, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(out)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("FORMATKIT_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: FORMATKIT_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("FORMATKIT_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: FORMATKIT_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("FORMATKIT_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: FORMATKIT_LOG_LEVEL, default: config for serve, warn otherwise)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("FORMATKIT_LOG_FORMAT", ""),
		"Log format: json, text (env: FORMATKIT_LOG_FORMAT)")

	fs.BoolVar(&cfg.Debug, "debug",
		getEnvBool("FORMATKIT_DEBUG", false),
		"Enable debug logging (env: FORMATKIT_DEBUG)")

	fs.StringVar(&cfg.Disabled, "disable",
		getEnv("FORMATKIT_DISABLE", ""),
		"Comma separated converter groups to skip (env: FORMATKIT_DISABLE)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("FORMATKIT_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout for serve (env: FORMATKIT_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	fs.Usage = func() {
		printDetailedHelp(out, fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg, fs, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	for _, g := range cfg.DisabledGroups() {
		if !slices.Contains(config.FormatGroups, g) {
			return fmt.Errorf("unknown converter group %q (known: %s)", g, strings.Join(config.FormatGroups, ", "))
		}
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp(out io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(out, `%s - format conversion toolkit

Usage: %s [options] <command> [command options]

Commands:
`, appName, appName)
	for _, c := range commands {
		_, _ = fmt.Fprintf(out, "  %-10s %s\n", c.name, c.summary)
	}
	_, _ = fmt.Fprintf(out, "\nOptions:\n")
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(out, `
Examples:
  # Encode a string
  %[1]s convert --from text --to url "a b&c"

  # Transcode an image file
  %[1]s convert --from png --to jpeg --in photo.png --out photo.jpg --opt quality=80

  # Inspect what a format converts to
  %[1]s info roman

  # Serve the HTTP and NATS gateways
  %[1]s --config /etc/formatkit/config.yaml serve

Version: %[2]s
Build: %[3]s
`, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
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
