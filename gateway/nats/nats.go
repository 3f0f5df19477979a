// Package nats exposes a conversion registry as a NATS request/reply service.
//
// The responder subscribes to two subjects derived from the configured one:
//
//	formatkit.convert  ConvertRequest in, ConvertResponse out
//	formatkit.formats  any payload in, {"formats": [...]} out
//
// With a queue group set, replicas share the load and each request is
// answered once.
package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/formatkit/config"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/gateway"
	"github.com/c360/formatkit/health"
	"github.com/c360/formatkit/natsclient"
)

// Subscriber is the part of *natsclient.Client the responder needs.
type Subscriber interface {
	Subscribe(ctx context.Context, subject, queue string, handler natsclient.MsgHandler) error
	Close(ctx context.Context) error
}

// Option configures a Responder
type Option func(*Responder)

// WithLogger sets the responder logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Responder) {
		if l != nil {
			r.logger = l
		}
	}
}

// Responder answers conversion requests arriving over NATS
type Responder struct {
	client   Subscriber
	registry gateway.Registry
	logger   *slog.Logger

	subject        string
	formatsSubject string
	queue          string

	running atomic.Bool
	offline atomic.Bool
	handled atomic.Uint64
	failed  atomic.Uint64
}

var _ gateway.Gateway = (*Responder)(nil)

// NewResponder creates a responder for reg on the subjects in cfg.
func NewResponder(client Subscriber, reg gateway.Registry, cfg config.NATSConfig, opts ...Option) (*Responder, error) {
	if client == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Responder", "NewResponder",
			"NATS client is required")
	}
	if reg == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Responder", "NewResponder",
			"registry is required")
	}
	if cfg.Subject == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Responder", "NewResponder",
			"subject cannot be empty")
	}

	r := &Responder{
		client:         client,
		registry:       reg,
		logger:         slog.Default(),
		subject:        cfg.Subject,
		formatsSubject: FormatsSubject(cfg.Subject),
		queue:          cfg.QueueGroup,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "nats-responder")
	return r, nil
}

// FormatsSubject derives the listing subject from the convert subject:
// "formatkit.convert" becomes "formatkit.formats".
func FormatsSubject(subject string) string {
	if base, ok := strings.CutSuffix(subject, ".convert"); ok {
		return base + ".formats"
	}
	return subject + ".formats"
}

// Name implements gateway.Gateway
func (r *Responder) Name() string { return "nats-responder" }

// Start subscribes both subjects. The client must already be connected.
func (r *Responder) Start(ctx context.Context) error {
	if r.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Responder", "Start",
			"responder already running")
	}

	if err := r.client.Subscribe(ctx, r.subject, r.queue, r.handleConvert); err != nil {
		return errors.Wrap(err, "Responder", "Start", "subscribe "+r.subject)
	}
	if err := r.client.Subscribe(ctx, r.formatsSubject, r.queue, r.handleFormats); err != nil {
		return errors.Wrap(err, "Responder", "Start", "subscribe "+r.formatsSubject)
	}

	r.running.Store(true)
	r.logger.Info("NATS responder started",
		"subject", r.subject, "formats_subject", r.formatsSubject, "queue", r.queue)
	return nil
}

// Stop drains the subscriptions by closing the client
func (r *Responder) Stop(timeout time.Duration) error {
	if !r.running.Swap(false) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := r.client.Close(ctx); err != nil {
		return errors.WrapTransient(err, "Responder", "Stop", "close NATS client")
	}
	r.logger.Info("NATS responder stopped", "handled", r.handled.Load(), "failed", r.failed.Load())
	return nil
}

// Handled returns the number of conversion requests answered, and how many
// of those failed.
func (r *Responder) Handled() (total, failed uint64) {
	return r.handled.Load(), r.failed.Load()
}

// ConnectionChanged records the client's connection state. Pass it to
// natsclient.WithConnectionListener.
func (r *Responder) ConnectionChanged(connected bool) {
	if r.offline.Swap(!connected) == connected {
		if connected {
			r.logger.Info("NATS connection restored")
		} else {
			r.logger.Warn("NATS connection lost")
		}
	}
}

// Health is unhealthy until Start succeeds and degraded while the
// connection is down.
func (r *Responder) Health() health.Status {
	if !r.running.Load() {
		return health.NewUnhealthy(r.Name(), "not subscribed")
	}
	if r.offline.Load() {
		return health.NewDegraded(r.Name(), "NATS connection lost, reconnecting")
	}
	total, failed := r.Handled()
	return health.NewHealthy(r.Name(), "subscribed to "+r.subject).WithMetrics(&health.Metrics{
		MessagesProcessed: int64(total),
		ErrorCount:        int(failed),
	})
}

func (r *Responder) handleConvert(ctx context.Context, msg *nats.Msg) {
	requestID := ""
	if msg.Header != nil {
		requestID = msg.Header.Get("X-Request-ID")
	}
	r.respond(msg, r.Process(ctx, msg.Data, requestID))
}

func (r *Responder) handleFormats(_ context.Context, msg *nats.Msg) {
	formats := r.registry.ListFormats()
	data, err := json.Marshal(map[string]any{"formats": formats, "count": len(formats)})
	if err != nil {
		r.logger.Error("Failed to encode formats", "error", err)
		return
	}
	r.respond(msg, data)
}

func (r *Responder) respond(msg *nats.Msg, data []byte) {
	if msg.Reply == "" {
		r.logger.Debug("Dropping reply for message without reply subject", "subject", msg.Subject)
		return
	}
	if err := msg.Respond(data); err != nil {
		r.logger.Warn("Failed to send reply", "subject", msg.Subject, "error", err)
	}
}

// Process decodes one request payload, runs it and encodes the reply. It
// always returns a ConvertResponse document, with Error set on failure.
func (r *Responder) Process(ctx context.Context, payload []byte, requestID string) []byte {
	r.handled.Add(1)

	var (
		req  gateway.ConvertRequest
		resp gateway.ConvertResponse
		err  error
	)
	if jsonErr := json.Unmarshal(payload, &req); jsonErr != nil {
		err = errors.Validationf("", "request is not valid JSON: %v", jsonErr)
	} else {
		resp, err = gateway.Convert(ctx, r.registry, req, requestID)
	}

	if err != nil {
		r.failed.Add(1)
		r.logger.Debug("Conversion failed", "from", req.From, "to", req.To, "error", err, "request_id", requestID)
		resp = gateway.Failed(req, requestID, err)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		r.logger.Error("Failed to encode reply", "error", err)
		data, _ = json.Marshal(gateway.Failed(req, requestID, errors.NewConversion(
			"result cannot be encoded as JSON", req.From, req.To, err)))
	}
	return data
}
