// Package converter defines the contract every format transform satisfies
// and the two stock implementations: Func for one-way transforms and
// Reversible for transforms that serve both directions of a pair.
//
// Converters never let a foreign error escape Convert: a failure is either
// one of the taxonomy errors from the errors package or is wrapped into a
// generic conversion error carrying the pair and the original cause.
package converter

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/format"
)

// Converter is one transform bound to a (from, to) pair.
type Converter interface {
	From() string
	To() string
	Description() string
	SupportsOptions() bool

	// Validate checks the input shape before any transform runs.
	Validate(data any) error

	// Convert runs validate, normalize options, transform.
	Convert(data any, opts Options) (any, error)

	// Bind returns an instance bound to exactly (from, to). The receiver is
	// not modified.
	Bind(from, to string) Converter
}

// Reverser is implemented by converters that can run in the opposite direction.
// The registry derives the inverse pair only for converters implementing it.
type Reverser interface {
	Reverse() Converter
}

// IsReversible reports whether c can serve the inverse of its pair.
func IsReversible(c Converter) bool {
	_, ok := c.(Reverser)
	return ok
}

// TransformFunc performs the actual conversion. Options are already normalized.
type TransformFunc func(data any, opts Options) (any, error)

// Validator checks an input value. Returning a plain error is fine; it is
// reported as a validation failure for the source format.
type Validator func(data any) error

// Option configures a Func or Reversible at construction.
type Option func(*settings)

type settings struct {
	description     string
	noOptions       bool
	validate        Validator
	validateReverse Validator
	logger          *slog.Logger
}

// WithDescription sets the human readable description.
func WithDescription(desc string) Option {
	return func(s *settings) { s.description = desc }
}

// WithValidator sets the input check for the forward direction.
func WithValidator(v Validator) Option {
	return func(s *settings) { s.validate = v }
}

// WithReverseValidator sets the input check for the backward direction of a
// Reversible converter. Ignored by Func.
func WithReverseValidator(v Validator) Option {
	return func(s *settings) { s.validateReverse = v }
}

// WithoutOptions marks the converter as ignoring caller options.
func WithoutOptions() Option {
	return func(s *settings) { s.noOptions = true }
}

// WithLogger sets the logger used for conversion tracing. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s *settings) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *settings) describe(from, to string) string {
	if s.description != "" {
		return s.description
	}
	return fmt.Sprintf("Converts %s to %s", from, to)
}

// validateWith applies the base rule (nil rejected, empty flagged) and then v.
func (s *settings) validateWith(v Validator, from, to string, data any) error {
	if isAbsent(data) {
		return errors.NewValidation("input data cannot be nil", from)
	}
	if isEmpty(data) {
		s.log().Warn("Empty input data provided", "from", from, "to", to)
	}
	if v == nil {
		return nil
	}
	err := v(data)
	if err == nil {
		return nil
	}
	if ce, ok := errors.AsConversion(err); ok {
		return ce.WithPair(from, "")
	}
	return errors.NewValidation(err.Error(), from)
}

// normalizeOptions returns an empty set for option-less converters and a
// defensive copy otherwise.
func (s *settings) normalizeOptions(from, to string, opts Options) Options {
	if s.noOptions {
		if len(opts) > 0 {
			s.log().Debug("Converter does not support options, ignoring",
				"from", from, "to", to, "options", len(opts))
		}
		return Options{}
	}
	return opts.Clone()
}

// execute is the shared Convert pipeline.
func execute(c Converter, s *settings, data any, opts Options, transform TransformFunc) (any, error) {
	from, to := c.From(), c.To()
	log := s.log().With("from", from, "to", to)
	log.Debug("Starting conversion", "input_type", fmt.Sprintf("%T", data))

	if err := c.Validate(data); err != nil {
		log.Error("Input validation failed", "error", err)
		return nil, err
	}

	result, err := safeTransform(transform, data, s.normalizeOptions(from, to, opts))
	if err != nil {
		if !errors.IsTaxonomy(err) {
			err = errors.NewConversion("conversion failed: "+err.Error(), from, to, err)
		}
		log.Error("Conversion failed", "error", err)
		return nil, err
	}

	log.Debug("Conversion completed", "output_type", fmt.Sprintf("%T", result))
	return result, nil
}

func safeTransform(transform TransformFunc, data any, opts Options) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in transform: %v", r)
		}
	}()
	return transform(data, opts)
}

func isAbsent(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func isEmpty(data any) bool {
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	}
	return false
}

func normalizePair(from, to string) (string, string) {
	return format.Normalize(from), format.Normalize(to)
}
