// Package http provides the JSON HTTP gateway for formatkit.
package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/formatkit/config"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/gateway"
	"github.com/c360/formatkit/health"
	"github.com/c360/formatkit/metric"
)

const gatewayName = "http"

type ctxKey struct{}

// RequestID returns the request ID attached by the gateway middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// getOrGenerateRequestID extracts request ID from headers or generates a new one
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	return uuid.NewString()
}

// Option configures a Gateway
type Option func(*Gateway)

// WithLogger sets the gateway logger
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithHealth reports the gateway's checks through m, alongside whatever
// else is registered there.
func WithHealth(m *health.Monitor) Option {
	return func(g *Gateway) {
		if m != nil {
			g.health = m
		}
	}
}

// WithMetrics records request counters on m
func WithMetrics(m *metric.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// Gateway serves a registry over HTTP
type Gateway struct {
	config   config.HTTPConfig
	registry gateway.Registry
	logger   *slog.Logger
	metrics  *metric.Metrics
	limiter  *rate.Limiter
	health   *health.Monitor

	server   *http.Server
	listener net.Listener

	// Lifecycle state (atomic operations)
	running atomic.Bool

	// Protects server, startTime and lastActivity
	mu           sync.RWMutex
	startTime    time.Time
	lastActivity time.Time

	requestsTotal   atomic.Uint64
	requestsSuccess atomic.Uint64
	requestsFailed  atomic.Uint64
	bytesReceived   atomic.Uint64
	bytesSent       atomic.Uint64
}

var (
	_ gateway.Gateway     = (*Gateway)(nil)
	_ gateway.HTTPHandler = (*Gateway)(nil)
)

// NewGateway creates an HTTP gateway for reg
func NewGateway(cfg config.HTTPConfig, reg gateway.Registry, opts ...Option) (*Gateway, error) {
	if reg == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Gateway", "NewGateway",
			"registry is required")
	}
	if cfg.MaxRequestSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "NewGateway",
			"max_request_size must be positive")
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}

	g := &Gateway{
		config:   cfg,
		registry: reg,
		logger:   slog.Default(),
		health:   health.NewMonitor(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "http-gateway")
	g.health.Register("registry", g.registryHealth)

	if cfg.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return g, nil
}

// Name implements gateway.Gateway
func (g *Gateway) Name() string { return "http-gateway" }

// Start listens on the configured port and serves in the background
func (g *Gateway) Start(_ context.Context) error {
	if g.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Gateway", "Start",
			"gateway already running")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", g.config.Port))
	if err != nil {
		return errors.WrapFatal(err, "Gateway", "Start", fmt.Sprintf("listen on port %d", g.config.Port))
	}

	srv := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.mu.Lock()
	g.server = srv
	g.listener = ln
	g.startTime = time.Now()
	g.running.Store(true)
	g.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			g.logger.Error("HTTP gateway stopped", "error", err)
		}
	}()

	g.logger.Info("HTTP gateway listening", "address", ln.Addr().String())
	return nil
}

// Stop gracefully stops the HTTP gateway
func (g *Gateway) Stop(timeout time.Duration) error {
	if !g.running.Load() {
		return nil
	}

	g.mu.Lock()
	srv := g.server
	g.server = nil
	g.listener = nil
	g.running.Store(false)
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Gateway", "Stop", "shutdown HTTP server")
	}
	return nil
}

// Addr returns the bound address while the gateway is running
func (g *Gateway) Addr() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Handler returns the gateway routes mounted at the root
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	g.RegisterHTTPHandlers("/", mux)
	return mux
}

// RegisterHTTPHandlers registers gateway routes with the HTTP mux
func (g *Gateway) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	routes := []struct {
		method, path string
		handler      http.HandlerFunc
	}{
		{http.MethodPost, "convert", g.handleConvert},
		{http.MethodPost, "convert/batch", g.handleBatch},
		{http.MethodGet, "formats", g.handleFormats},
		{http.MethodGet, "formats/{name}", g.handleFormatInfo},
		{http.MethodGet, "conversions", g.handleConversions},
		{http.MethodGet, "stats", g.handleStats},
		{http.MethodGet, "health", g.handleHealth},
	}
	for _, route := range routes {
		endpoint := "/" + route.path
		mux.Handle(route.method+" "+prefix+route.path, g.instrument(endpoint, route.handler))
	}

	if g.config.EnableCORS {
		mux.HandleFunc(http.MethodOptions+" "+prefix+"{path...}", func(w http.ResponseWriter, r *http.Request) {
			g.applyCORS(w, r)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// statusRecorder captures the status code and body size for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// instrument wraps a route with request IDs, CORS, rate limiting, body
// limits, timeouts and metrics.
func (g *Gateway) instrument(endpoint string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := getOrGenerateRequestID(r)
		w.Header().Set("X-Request-ID", requestID)

		g.requestsTotal.Add(1)
		g.mu.Lock()
		g.lastActivity = time.Now()
		g.mu.Unlock()

		if g.config.EnableCORS {
			g.applyCORS(w, r)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			g.bytesSent.Add(uint64(rec.bytes))
			g.metrics.RecordGatewayRequest(gatewayName, endpoint, rec.status)
			if rec.status < 400 {
				g.requestsSuccess.Add(1)
			} else {
				g.requestsFailed.Add(1)
			}
		}()

		if g.limiter != nil && !g.limiter.Allow() {
			g.metrics.RecordGatewayRejection(gatewayName, "rate_limited")
			g.writeError(rec, requestID, errors.WrapTransient(errors.ErrRateLimited, "Gateway", "instrument",
				"rate limit admission"))
			return
		}

		if r.ContentLength > 0 {
			g.bytesReceived.Add(uint64(r.ContentLength))
		}
		r.Body = http.MaxBytesReader(rec, r.Body, g.config.MaxRequestSize)
		defer r.Body.Close()

		ctx := context.WithValue(r.Context(), ctxKey{}, requestID)
		if g.config.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.config.RequestTimeout)
			defer cancel()
		}

		next(rec, r.WithContext(ctx))
		g.logger.Debug("Handled request", "endpoint", endpoint, "status", rec.status, "request_id", requestID)
	})
}

// decodeBody reads a JSON body into v, writing the error response itself
func (g *Gateway) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if stderrors.As(err, &tooBig) {
			g.metrics.RecordGatewayRejection(gatewayName, "too_large")
			g.writeError(w, RequestID(r.Context()), errors.WrapInvalid(errors.ErrPayloadTooBig, "Gateway", "decodeBody",
				fmt.Sprintf("read body over %d bytes", g.config.MaxRequestSize)))
			return false
		}
		g.metrics.RecordGatewayRejection(gatewayName, "malformed")
		g.writeError(w, RequestID(r.Context()), errors.Validationf("", "request body is not valid JSON: %v", err))
		return false
	}
	return true
}

func (g *Gateway) handleConvert(w http.ResponseWriter, r *http.Request) {
	requestID := RequestID(r.Context())

	var req gateway.ConvertRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	resp, err := gateway.Convert(r.Context(), g.registry, req, requestID)
	if err != nil {
		g.logger.Debug("Conversion failed", "from", req.From, "to", req.To, "error", err, "request_id", requestID)
		failed := gateway.Failed(req, requestID, err)
		g.writeJSON(w, failed.Error.Status, failed)
		return
	}
	g.writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleBatch(w http.ResponseWriter, r *http.Request) {
	requestID := RequestID(r.Context())

	var req gateway.BatchRequest
	if !g.decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		g.writeError(w, requestID, errors.NewValidation("batch must contain at least one item", ""))
		return
	}

	results := make([]gateway.ConvertResponse, len(req.Items))
	eg, ctx := errgroup.WithContext(r.Context())
	eg.SetLimit(g.config.BatchConcurrency)
	for i, item := range req.Items {
		eg.Go(func() error {
			resp, err := gateway.Convert(ctx, g.registry, item, requestID)
			if err != nil {
				resp = gateway.Failed(item, requestID, err)
			}
			results[i] = resp
			return nil
		})
	}
	_ = eg.Wait()

	out := gateway.BatchResponse{Results: results, RequestID: requestID}
	for _, res := range results {
		if res.Error != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	g.writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handleFormats(w http.ResponseWriter, _ *http.Request) {
	formats := g.registry.ListFormats()
	g.writeJSON(w, http.StatusOK, map[string]any{
		"formats": formats,
		"count":   len(formats),
	})
}

func (g *Gateway) handleFormatInfo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	info := g.registry.ConversionsFor(name)
	if len(info.Incoming) == 0 && len(info.Outgoing) == 0 {
		g.writeJSON(w, http.StatusNotFound, map[string]any{
			"error": &gateway.ErrorBody{
				Kind:             errors.KindUnsupportedFormat.String(),
				Message:          fmt.Sprintf("unknown format '%s'", name),
				Status:           http.StatusNotFound,
				AvailableFormats: g.registry.ListFormats(),
			},
			"request_id": RequestID(r.Context()),
		})
		return
	}
	g.writeJSON(w, http.StatusOK, info)
}

func (g *Gateway) handleConversions(w http.ResponseWriter, _ *http.Request) {
	conversions := g.registry.ListConversions()
	g.writeJSON(w, http.StatusOK, map[string]any{
		"conversions": conversions,
		"count":       len(conversions),
	})
}

// Stats is the gateway activity reported by GET /stats
type Stats struct {
	RequestsTotal   uint64    `json:"requests_total"`
	RequestsSuccess uint64    `json:"requests_success"`
	RequestsFailed  uint64    `json:"requests_failed"`
	BytesReceived   uint64    `json:"bytes_received"`
	BytesSent       uint64    `json:"bytes_sent"`
	ErrorRate       float64   `json:"error_rate"`
	UptimeSeconds   float64   `json:"uptime_seconds"`
	LastActivity    time.Time `json:"last_activity,omitzero"`
}

// Stats returns the current request counters
func (g *Gateway) Stats() Stats {
	g.mu.RLock()
	startTime := g.startTime
	lastActivity := g.lastActivity
	g.mu.RUnlock()

	s := Stats{
		RequestsTotal:   g.requestsTotal.Load(),
		RequestsSuccess: g.requestsSuccess.Load(),
		RequestsFailed:  g.requestsFailed.Load(),
		BytesReceived:   g.bytesReceived.Load(),
		BytesSent:       g.bytesSent.Load(),
		LastActivity:    lastActivity,
	}
	if s.RequestsTotal > 0 {
		s.ErrorRate = float64(s.RequestsFailed) / float64(s.RequestsTotal)
	}
	if !startTime.IsZero() {
		s.UptimeSeconds = time.Since(startTime).Seconds()
	}
	return s
}

func (g *Gateway) handleStats(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]any{
		"registry": g.registry.Stats(),
		"gateway":  g.Stats(),
	})
}

// registryHealth is degraded while no conversion is registered
func (g *Gateway) registryHealth() health.Status {
	stats := g.registry.Stats()
	if stats.TotalPairs == 0 {
		return health.NewDegraded("registry", "no conversions registered")
	}
	return health.NewHealthy("registry",
		fmt.Sprintf("%d conversions across %d formats", stats.TotalPairs, stats.TotalFormats))
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := g.health.Report("formatkit")
	code := http.StatusOK
	if !status.IsHealthy() {
		code = http.StatusServiceUnavailable
	}
	g.writeJSON(w, code, status)
}

// applyCORS applies CORS headers to the response
func (g *Gateway) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeError writes an error response for failures outside a conversion
func (g *Gateway) writeError(w http.ResponseWriter, requestID string, err error) {
	body := gateway.NewErrorBody(err)
	g.writeJSON(w, body.Status, map[string]any{
		"error":      body,
		"request_id": requestID,
	})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		g.logger.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":{"kind":"internal","message":"internal server error","status":500}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
