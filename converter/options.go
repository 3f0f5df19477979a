package converter

import (
	"maps"
	"math"

	"github.com/c360/formatkit/errors"
)

// Options carries per-call transform parameters such as "uppercase" or
// "quality". Each transform applies its own defaults through the typed getters.
type Options map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (o Options) Clone() Options {
	if o == nil {
		return Options{}
	}
	return maps.Clone(o)
}

// Has reports whether key is set
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns the string value for key, or def when missing or mistyped.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Int returns the integer value for key, or def when missing. JSON numbers
// arrive as float64 and are accepted only when whole; 2.7 is a validation
// error, as is any non-numeric value.
func (o Options) Int(key string, def int) (int, error) {
	val, ok := o[key]
	if !ok || val == nil {
		return def, nil
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return wholeNumber(key, v)
	case float32:
		return wholeNumber(key, float64(v))
	}
	return 0, errors.Validationf("", "option %q must be an integer, got %T", key, val)
}

func wholeNumber(key string, f float64) (int, error) {
	if math.Trunc(f) != f || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errors.Validationf("", "option %q must be an integer, got %v", key, f)
	}
	return int(f), nil
}

// Bool returns the boolean value for key
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Float64 returns the float value for key
func (o Options) Float64(key string, def float64) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}
