package converter

// Func is a one-way converter built from a TransformFunc.
type Func struct {
	settings
	from      string
	to        string
	transform TransformFunc
}

// New creates a one-way converter for from -> to.
func New(from, to string, transform TransformFunc, opts ...Option) *Func {
	from, to = normalizePair(from, to)
	return &Func{
		settings:  newSettings(opts),
		from:      from,
		to:        to,
		transform: transform,
	}
}

// From returns the source format
func (f *Func) From() string { return f.from }

// To returns the target format
func (f *Func) To() string { return f.to }

// Description returns the configured text or "Converts {from} to {to}".
func (f *Func) Description() string { return f.describe(f.from, f.to) }

// SupportsOptions reports whether caller options reach the transform
func (f *Func) SupportsOptions() bool { return !f.noOptions }

// Validate checks data against the base rules and the configured validator.
func (f *Func) Validate(data any) error {
	return f.validateWith(f.validate, f.from, f.to, data)
}

// Convert runs the transform.
func (f *Func) Convert(data any, opts Options) (any, error) {
	return execute(f, &f.settings, data, opts, f.transform)
}

// Bind returns a copy bound to (from, to).
func (f *Func) Bind(from, to string) Converter {
	cp := *f
	cp.from, cp.to = normalizePair(from, to)
	return &cp
}
