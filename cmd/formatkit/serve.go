package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/c360/formatkit/config"
	"github.com/c360/formatkit/gateway"
	httpgateway "github.com/c360/formatkit/gateway/http"
	natsgateway "github.com/c360/formatkit/gateway/nats"
	"github.com/c360/formatkit/health"
	"github.com/c360/formatkit/metric"
	"github.com/c360/formatkit/natsclient"
	"github.com/c360/formatkit/pkg/retry"
	"github.com/c360/formatkit/registry"
)

func runServe(a *app, args []string) error {
	fs := a.newFlagSet("serve", "[--validate]")
	validateOnly := fs.Bool("validate", false, "Validate configuration and exit")
	if ok, err := parseCommand(fs, args); !ok {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	// Config decides the log setup unless a flag or env var did
	level, format := a.cli.LogLevel, a.cli.LogFormat
	if level == "" {
		level = cfg.Log.Level
	}
	if format == "" {
		format = cfg.Log.Format
	}
	a.logger = setupLogger(level, format, a.stderr)
	slog.SetDefault(a.logger)

	if *validateOnly {
		a.logger.Info("Configuration is valid")
		return nil
	}

	a.logger.Info("Starting formatkit", "version", Version, "build_time", BuildTime, "config_path", a.cli.ConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, a, cfg)
	if err != nil {
		return err
	}
	return srv.run(ctx, a.cli.ShutdownTimeout)
}

// server owns everything serve starts, in start order
type server struct {
	logger        *slog.Logger
	registry      *registry.Registry
	metricsServer *metric.Server
	health        *health.Monitor
	gateways      []gateway.Gateway
}

func newServer(ctx context.Context, a *app, cfg *config.Config) (*server, error) {
	metricsRegistry := metric.NewMetricsRegistry()
	m := metricsRegistry.CoreMetrics()

	reg, err := a.buildRegistry(cfg, m)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Converter registry ready", "pairs", reg.Len(), "formats", len(reg.ListFormats()),
		"disabled_groups", cfg.Formats.Disabled)

	s := &server{logger: a.logger, registry: reg, health: health.NewMonitor()}

	if cfg.Metrics.Enabled {
		s.metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
	}

	if cfg.HTTP.Enabled {
		gw, err := httpgateway.NewGateway(cfg.HTTP, reg,
			httpgateway.WithLogger(a.logger), httpgateway.WithMetrics(m), httpgateway.WithHealth(s.health))
		if err != nil {
			return nil, fmt.Errorf("create HTTP gateway: %w", err)
		}
		s.gateways = append(s.gateways, gw)
	}

	if cfg.NATS.Enabled {
		responder, err := newNATSResponder(ctx, a.logger, cfg.NATS, reg, m)
		if err != nil {
			return nil, err
		}
		s.health.Register(responder.Name(), responder.Health)
		s.gateways = append(s.gateways, responder)
	}

	if len(s.gateways) == 0 {
		return nil, fmt.Errorf("nothing to serve: both http and nats are disabled")
	}
	return s, nil
}

// newNATSResponder connects to NATS and wraps the client in a responder
func newNATSResponder(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.NATSConfig,
	reg *registry.Registry,
	m *metric.Metrics,
) (*natsgateway.Responder, error) {
	// The responder exists only after connecting; until then there is
	// nothing to report to.
	var responder atomic.Pointer[natsgateway.Responder]
	opts := natsClientOptions(cfg, logger, m, func(connected bool) {
		if r := responder.Load(); r != nil {
			r.ConnectionChanged(connected)
		}
	})

	client, err := natsclient.NewClient(strings.Join(cfg.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	logger.Info("Connecting to NATS", "urls", cfg.URLs)
	err = retry.Do(ctx, retry.Startup(), func() error {
		err := client.Connect(ctx)
		if stderrors.Is(err, natsclient.ErrCircuitOpen) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	r, err := natsgateway.NewResponder(client, reg, cfg, natsgateway.WithLogger(logger))
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("create NATS responder: %w", err)
	}
	responder.Store(r)
	r.ConnectionChanged(client.IsHealthy())
	return r, nil
}

// natsClientOptions maps the nats config section onto client options.
func natsClientOptions(
	cfg config.NATSConfig,
	logger *slog.Logger,
	m *metric.Metrics,
	onConnection func(bool),
) []natsclient.ClientOption {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(m),
		natsclient.WithClientName(cfg.Name),
		natsclient.WithMaxReconnects(cfg.MaxReconnects),
		natsclient.WithReconnectWait(cfg.ReconnectWait),
		natsclient.WithPingInterval(cfg.PingInterval),
		natsclient.WithDrainTimeout(cfg.DrainTimeout),
		natsclient.WithHandlerTimeout(cfg.HandlerTimeout),
		natsclient.WithCircuitThreshold(cfg.CircuitThreshold),
		natsclient.WithConnectionListener(onConnection),
	}
	switch {
	case cfg.Token != "":
		opts = append(opts, natsclient.WithToken(cfg.Token))
	case cfg.User != "":
		opts = append(opts, natsclient.WithUserPassword(cfg.User, cfg.Password))
	}
	return opts
}

// run starts every component, waits for ctx and shuts down in reverse order
func (s *server) run(ctx context.Context, shutdownTimeout time.Duration) error {
	metricsErr := make(chan error, 1)
	if s.metricsServer != nil {
		go func() { metricsErr <- s.metricsServer.Start() }()
		s.logger.Info("Metrics server started", "address", s.metricsServer.Address())
	}

	started := 0
	var startErr error
	for _, gw := range s.gateways {
		if err := gw.Start(ctx); err != nil {
			s.health.Update(gw.Name(), health.FromError(gw.Name(), err))
			startErr = fmt.Errorf("start %s: %w", gw.Name(), err)
			break
		}
		started++
		s.logger.Info("Gateway started", "gateway", gw.Name())
	}

	if startErr == nil {
		s.logger.Info("formatkit ready")
		select {
		case <-ctx.Done():
			s.logger.Info("Received shutdown signal")
		case err := <-metricsErr:
			if err != nil {
				startErr = fmt.Errorf("metrics server: %w", err)
			}
		}
	}

	shutdownErr := s.shutdown(s.gateways[:started], shutdownTimeout)
	if err := stderrors.Join(startErr, shutdownErr); err != nil {
		return err
	}
	s.logger.Info("formatkit shutdown complete")
	return nil
}

// shutdown stops gateways in reverse order, sharing one deadline
func (s *server) shutdown(gateways []gateway.Gateway, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	var errs []error
	for i := len(gateways) - 1; i >= 0; i-- {
		remaining := max(time.Until(deadline), time.Second)
		if err := gateways[i].Stop(remaining); err != nil {
			s.logger.Error("Error stopping gateway", "gateway", gateways[i].Name(), "error", err)
			errs = append(errs, err)
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
