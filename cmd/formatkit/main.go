// Package main implements the formatkit command line: one-shot conversions,
// registry inspection and the serve command running the HTTP and NATS
// gateways.
package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/c360/formatkit/config"
	"github.com/c360/formatkit/formatregistry"
	"github.com/c360/formatkit/metric"
	"github.com/c360/formatkit/registry"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "formatkit"
)

// errUsage signals a command line mistake; usage has already been printed.
var errUsage = stderrors.New("usage error")

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(3)
		}
	}()

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if stderrors.Is(err, errUsage) {
			os.Exit(2)
		}
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

// app carries what every command needs
type app struct {
	cli    *CLIConfig
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands = []command{
	{"convert", "Convert data between two formats", runConvert},
	{"list", "List registered conversions", runList},
	{"formats", "List known formats", runFormats},
	{"info", "Show the conversions touching one format", runInfo},
	{"stats", "Show registry counters", runStats},
	{"serve", "Run the HTTP gateway, NATS responder and metrics server", runServe},
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cli, fs, err := parseFlags(args, stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s (%s)\n", appName, Version, BuildTime)
		return nil
	}

	if cli.ShowHelp {
		fs.SetOutput(stdout)
		printDetailedHelp(stdout, fs)
		return nil
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printDetailedHelp(stderr, fs)
		return errUsage
	}

	a := &app{cli: cli, stdin: stdin, stdout: stdout, stderr: stderr}
	for _, c := range commands {
		if c.name != rest[0] {
			continue
		}
		level := cli.LogLevel
		if level == "" {
			level = "warn"
		}
		a.logger = setupLogger(level, cli.LogFormat, stderr)
		slog.SetDefault(a.logger)
		return c.run(a, rest[1:])
	}

	_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
	printDetailedHelp(stderr, fs)
	return errUsage
}

// loadConfig merges defaults, the optional config file, FORMATKIT_*
// environment overrides and --disable.
func (a *app) loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if a.cli.ConfigPath != "" {
		loader.AddLayer(a.cli.ConfigPath)
	}
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, g := range a.cli.DisabledGroups() {
		if cfg.GroupEnabled(g) {
			cfg.Formats.Disabled = append(cfg.Formats.Disabled, g)
		}
	}
	return cfg, nil
}

// buildRegistry creates the populated registry. m may be nil.
func (a *app) buildRegistry(cfg *config.Config, m *metric.Metrics) (*registry.Registry, error) {
	reg, err := formatregistry.New(cfg, registry.WithLogger(a.logger), registry.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	a.logger.Debug("Registry ready", "pairs", reg.Len(), "disabled", cfg.Formats.Disabled)
	return reg, nil
}
