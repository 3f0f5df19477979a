package converter

import (
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/format"
)

// Reversible serves both directions of a declared pair (a, b) with one
// definition: forward converts a -> b and backward converts b -> a. Which one
// runs depends on the pair the instance is currently bound to.
type Reversible struct {
	settings
	a, b     string
	from, to string
	forward  TransformFunc
	backward TransformFunc
}

// NewReversible creates a converter for a <-> b bound to a -> b.
func NewReversible(a, b string, forward, backward TransformFunc, opts ...Option) *Reversible {
	a, b = normalizePair(a, b)
	return &Reversible{
		settings: newSettings(opts),
		a:        a,
		b:        b,
		from:     a,
		to:       b,
		forward:  forward,
		backward: backward,
	}
}

// Formats returns the declared pair (a, b) regardless of binding.
func (r *Reversible) Formats() (string, string) { return r.a, r.b }

// From returns the bound source format
func (r *Reversible) From() string { return r.from }

// To returns the bound target format
func (r *Reversible) To() string { return r.to }

// Description returns the configured text or "Converts {from} to {to}".
func (r *Reversible) Description() string { return r.describe(r.from, r.to) }

// SupportsOptions reports whether caller options reach the transforms
func (r *Reversible) SupportsOptions() bool { return !r.noOptions }

// Validate picks the validator for the bound direction.
func (r *Reversible) Validate(data any) error {
	var v Validator
	switch {
	case format.Equal(r.from, r.a):
		v = r.validate
	case format.Equal(r.from, r.b):
		v = r.validateReverse
	}
	return r.validateWith(v, r.from, r.to, data)
}

// Convert dispatches to forward or backward.
func (r *Reversible) Convert(data any, opts Options) (any, error) {
	return execute(r, &r.settings, data, opts, r.dispatch)
}

func (r *Reversible) dispatch(data any, opts Options) (any, error) {
	switch {
	case format.Equal(r.from, r.a) && format.Equal(r.to, r.b):
		return r.forward(data, opts)
	case format.Equal(r.from, r.b) && format.Equal(r.to, r.a):
		return r.backward(data, opts)
	default:
		return nil, errors.NewConversion("invalid format combination", r.from, r.to, nil)
	}
}

// Reverse returns the counterpart bound to the opposite direction. Both share
// the transforms and the description.
func (r *Reversible) Reverse() Converter {
	cp := *r
	cp.from, cp.to = r.to, r.from
	return &cp
}

// Bind returns a copy bound to (from, to). A pair outside the declared formats
// is accepted here and rejected by Convert.
func (r *Reversible) Bind(from, to string) Converter {
	cp := *r
	cp.from, cp.to = normalizePair(from, to)
	return &cp
}
