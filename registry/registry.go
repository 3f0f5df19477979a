package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/format"
	"github.com/c360/formatkit/metric"
)

// Conversion describes one registered pair.
type Conversion struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description"`
	Converter   string `json:"converter"`
	Reversible  bool   `json:"reversible"`
}

// FormatConversions lists the direct neighbours of one format.
type FormatConversions struct {
	Format   string   `json:"format"`
	Incoming []string `json:"incoming"` // formats with an edge into Format
	Outgoing []string `json:"outgoing"` // formats Format has an edge into
}

// Stats summarises the registry
type Stats struct {
	TotalPairs      int `json:"total_pairs"`
	TotalFormats    int `json:"total_formats"`
	RegisteredCount int `json:"registered_count"`
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records conversion outcomes and registry size.
func WithMetrics(m *metric.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// Registry maps (from, to) pairs to converters.
type Registry struct {
	mu      sync.Mutex // serialises writers
	current atomic.Pointer[snapshot]
	logger  *slog.Logger
	metrics *metric.Metrics
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(emptySnapshot())
	r.logger.Debug("Initialized conversion registry")
	return r
}

// RegisterOption adjusts a single Register call
type RegisterOption func(*registerConfig)

type registerConfig struct {
	from, to    string
	autoReverse bool
	description string
}

// WithFormats registers the converter under (from, to) instead of its own
// From/To metadata.
func WithFormats(from, to string) RegisterOption {
	return func(c *registerConfig) {
		c.from = from
		c.to = to
	}
}

// WithAutoReverse controls inverse-pair derivation for reversible converters.
// Enabled by default.
func WithAutoReverse(enabled bool) RegisterOption {
	return func(c *registerConfig) { c.autoReverse = enabled }
}

// WithDescription overrides the converter's description for this registration.
func WithDescription(desc string) RegisterOption {
	return func(c *registerConfig) { c.description = desc }
}

// Register adds c to the registry. Failures are configuration errors.
func (r *Registry) Register(c converter.Converter, opts ...RegisterOption) error {
	if isNil(c) {
		return errors.NewConfiguration("cannot register nil converter: converter contract not satisfied", nil)
	}

	cfg := registerConfig{autoReverse: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.from == "" {
		cfg.from = c.From()
	}
	if cfg.to == "" {
		cfg.to = c.To()
	}

	pair := format.NewPair(cfg.from, cfg.to)
	if !pair.Valid() {
		return errors.NewConfiguration(fmt.Sprintf(
			"cannot register %T: missing format information (from=%q, to=%q)", c, cfg.from, cfg.to), nil)
	}

	reversible := converter.IsReversible(c)
	stored := c
	if cfg.description != "" {
		stored = described{Converter: c, text: cfg.description}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.Load().clone()

	if existing, ok := next.pairs[pair]; ok {
		r.logger.Warn("Overriding existing converter",
			"pair", pair.String(),
			"previous", typeName(existing.conv),
			"replacement", typeName(c))
	}

	next.insert(pair, stored, reversible)
	next.index[pair.From] = append(next.index[pair.From], stored)
	next.index[pair.To] = append(next.index[pair.To], stored)
	r.logger.Info("Registered converter", "pair", pair.String(), "converter", typeName(c))

	if cfg.autoReverse && reversible {
		rev := pair.Reverse()
		if _, claimed := next.pairs[rev]; !claimed {
			next.insert(rev, stored, reversible)
			r.logger.Info("Auto-registered reverse", "pair", rev.String(), "converter", typeName(c))
		} else {
			r.logger.Debug("Reverse pair already registered, keeping it", "pair", rev.String())
		}
	}

	r.publish(next)
	return nil
}

// Get returns a converter bound to exactly (from, to).
func (r *Registry) Get(from, to string) (converter.Converter, error) {
	snap := r.current.Load()
	pair := format.NewPair(from, to)
	e, ok := snap.pairs[pair]
	if !ok {
		return nil, errors.NewUnsupportedFormat(pair.From, pair.To, snap.formats)
	}
	return e.conv.Bind(pair.From, pair.To), nil
}

// Convert looks up (from, to) and runs the converter.
func (r *Registry) Convert(data any, from, to string, opts converter.Options) (any, error) {
	start := time.Now()
	c, err := r.Get(from, to)
	if err != nil {
		r.metrics.RecordConversion("unsupported", "unsupported", time.Since(start), err)
		return nil, err
	}

	result, err := c.Convert(data, opts)
	r.metrics.RecordConversion(c.From(), c.To(), time.Since(start), err)
	return result, err
}

// IsSupported reports whether a direct converter exists for (from, to).
func (r *Registry) IsSupported(from, to string) bool {
	_, ok := r.current.Load().pairs[format.NewPair(from, to)]
	return ok
}

// ListFormats returns every format appearing in a registered pair, sorted.
func (r *Registry) ListFormats() []string {
	return clone(r.current.Load().formats)
}

// ListConversions returns every registered pair sorted by (from, to).
func (r *Registry) ListConversions() []Conversion {
	return clone(r.current.Load().conversions)
}

// ConversionsFor returns the direct neighbours of a format. Unknown formats
// yield empty lists.
func (r *Registry) ConversionsFor(name string) FormatConversions {
	return r.current.Load().neighbours(format.Normalize(name))
}

// Graph returns the format graph: each format mapped to the sorted formats it
// converts into directly. The map is a copy.
func (r *Registry) Graph() map[string][]string {
	snap := r.current.Load()
	g := make(map[string][]string, len(snap.graph))
	for from := range snap.graph {
		g[from] = snap.outgoing(from)
	}
	return g
}

// ConvertersTouching returns the converters registered with name on either
// side, in registration order. Derived reverse edges are not listed.
func (r *Registry) ConvertersTouching(name string) []converter.Converter {
	return clone(r.current.Load().index[format.Normalize(name)])
}

// Clear removes every converter and resets counters.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.publish(emptySnapshot())
	r.logger.Info("Cleared all converters from registry")
}

// Stats returns the registry counters
func (r *Registry) Stats() Stats {
	snap := r.current.Load()
	return Stats{
		TotalPairs:      len(snap.pairs),
		TotalFormats:    len(snap.formats),
		RegisteredCount: snap.registered,
	}
}

// Len returns the number of registered pairs
func (r *Registry) Len() int {
	return len(r.current.Load().pairs)
}

// String implements fmt.Stringer
func (r *Registry) String() string {
	s := r.Stats()
	return fmt.Sprintf("Registry(pairs=%d, formats=%d)", s.TotalPairs, s.TotalFormats)
}

// publish must be called with mu held.
func (r *Registry) publish(next *snapshot) {
	next.finalize()
	r.current.Store(next)
	r.metrics.RecordRegistrySize(len(next.pairs), len(next.formats))
}

// described overrides a converter's description while keeping its behaviour.
type described struct {
	converter.Converter
	text string
}

func (d described) Description() string { return d.text }

func (d described) Bind(from, to string) converter.Converter {
	return described{Converter: d.Converter.Bind(from, to), text: d.text}
}

func isNil(c converter.Converter) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func typeName(c converter.Converter) string {
	if d, ok := c.(described); ok {
		c = d.Converter
	}
	return fmt.Sprintf("%T", c)
}

func clone[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
