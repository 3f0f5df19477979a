package converter

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/formatkit/errors"
)

func upper(data any, _ Options) (any, error) {
	return strings.ToUpper(data.(string)), nil
}

func lower(data any, _ Options) (any, error) {
	return strings.ToLower(data.(string)), nil
}

func TestFunc_Metadata(t *testing.T) {
	c := New(" Text ", "SHOUT", upper)

	assert.Equal(t, "text", c.From())
	assert.Equal(t, "shout", c.To())
	assert.Equal(t, "Converts text to shout", c.Description())
	assert.True(t, c.SupportsOptions())
	assert.False(t, IsReversible(c))

	described := New("text", "shout", upper, WithDescription("Shouts text"))
	assert.Equal(t, "Shouts text", described.Description())
}

func TestFunc_Convert(t *testing.T) {
	c := New("text", "shout", upper, WithValidator(ExpectString))

	got, err := c.Convert("hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", got)
}

func TestFunc_ValidationFailures(t *testing.T) {
	c := New("text", "shout", upper, WithValidator(ExpectString))

	t.Run("nil input", func(t *testing.T) {
		_, err := c.Convert(nil, nil)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.Contains(t, err.Error(), "cannot be nil")
	})

	t.Run("typed nil pointer", func(t *testing.T) {
		var p *bytes.Buffer
		_, err := c.Convert(p, nil)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := c.Convert(42, nil)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		ce, ok := errors.AsConversion(err)
		require.True(t, ok)
		assert.Equal(t, "text", ce.From)
		assert.Contains(t, err.Error(), "requires string input, got int")
	})
}

func TestFunc_EmptyInputAllowed(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := New("text", "shout", upper, WithLogger(logger))

	got, err := c.Convert("", nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.Contains(t, buf.String(), "Empty input data provided")
}

func TestFunc_ErrorWrapping(t *testing.T) {
	cause := stderrors.New("codec exploded")

	t.Run("foreign error is wrapped", func(t *testing.T) {
		c := New("a", "b", func(any, Options) (any, error) { return nil, cause })
		_, err := c.Convert("x", nil)
		require.Error(t, err)
		assert.True(t, errors.IsConversion(err))
		assert.ErrorIs(t, err, cause)

		ce, _ := errors.AsConversion(err)
		assert.Equal(t, "a", ce.From)
		assert.Equal(t, "b", ce.To)
	})

	t.Run("taxonomy error passes through", func(t *testing.T) {
		orig := errors.NewValidation("out of range", "decimal")
		c := New("decimal", "roman", func(any, Options) (any, error) { return nil, orig })
		_, err := c.Convert("5000", nil)
		assert.Same(t, orig, err)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		c := New("a", "b", func(any, Options) (any, error) { panic("boom") })
		_, err := c.Convert("x", nil)
		require.Error(t, err)
		assert.True(t, errors.IsConversion(err))
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestFunc_OptionNormalization(t *testing.T) {
	var seen Options
	capture := func(_ any, opts Options) (any, error) {
		seen = opts
		opts["mutated"] = true
		return nil, nil
	}

	t.Run("copy is passed", func(t *testing.T) {
		caller := Options{"uppercase": true}
		_, err := New("a", "b", capture).Convert("x", caller)
		require.NoError(t, err)
		assert.Equal(t, true, seen["uppercase"])
		assert.NotContains(t, caller, "mutated")
	})

	t.Run("options discarded", func(t *testing.T) {
		c := New("a", "b", capture, WithoutOptions())
		assert.False(t, c.SupportsOptions())
		_, err := c.Convert("x", Options{"uppercase": true})
		require.NoError(t, err)
		assert.NotContains(t, seen, "uppercase")
	})

	t.Run("nil options", func(t *testing.T) {
		_, err := New("a", "b", capture).Convert("x", nil)
		require.NoError(t, err)
		assert.NotNil(t, seen)
	})
}

func TestFunc_Bind(t *testing.T) {
	c := New("text", "shout", upper)
	bound := c.Bind("Words", "LOUD")

	assert.Equal(t, "words", bound.From())
	assert.Equal(t, "loud", bound.To())
	assert.Equal(t, "text", c.From(), "receiver must not change")
}

func TestReversible(t *testing.T) {
	c := NewReversible("lower", "upper", upper, lower,
		WithDescription("Case folding"),
		WithValidator(ExpectString),
		WithReverseValidator(ExpectString))

	assert.True(t, IsReversible(c))
	a, b := c.Formats()
	assert.Equal(t, "lower", a)
	assert.Equal(t, "upper", b)

	got, err := c.Convert("abc", nil)
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)

	rev := c.Reverse()
	assert.Equal(t, "upper", rev.From())
	assert.Equal(t, "lower", rev.To())
	assert.Equal(t, c.Description(), rev.Description())

	got, err = rev.Convert("ABC", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	assert.Equal(t, "lower", c.From(), "Reverse must not mutate the receiver")
}

func TestReversible_DirectionalValidation(t *testing.T) {
	c := NewReversible("binary", "base64",
		func(any, Options) (any, error) { return "ok", nil },
		func(any, Options) (any, error) { return []byte("ok"), nil },
		WithValidator(ExpectBytes),
		WithReverseValidator(ExpectString))

	_, err := c.Convert("not bytes", nil)
	assert.True(t, errors.IsValidation(err))

	_, err = c.Reverse().Convert("aGk=", nil)
	assert.NoError(t, err)

	_, err = c.Reverse().Convert([]byte("aGk="), nil)
	assert.True(t, errors.IsValidation(err))
}

func TestReversible_InvalidCombination(t *testing.T) {
	c := NewReversible("lower", "upper", upper, lower)
	bound := c.Bind("lower", "title")

	_, err := bound.Convert("abc", nil)
	require.Error(t, err)
	assert.True(t, errors.IsConversion(err))
	assert.Contains(t, err.Error(), "invalid format combination")
}

func TestReversible_BindDispatch(t *testing.T) {
	c := NewReversible("lower", "upper", upper, lower)

	got, err := c.Bind("UPPER", "lower").Convert("XY", nil)
	require.NoError(t, err)
	assert.Equal(t, "xy", got)

	// Names that were never normalized still pick the right direction.
	raw := NewReversible("lower", "upper", upper, lower)
	raw.from, raw.to = " Upper", "LOWER "
	got, err = raw.Convert("XY", nil)
	require.NoError(t, err)
	assert.Equal(t, "xy", got)
}

func TestOptions(t *testing.T) {
	opts := Options{
		"name":    "x",
		"width":   float64(8),
		"flag":    true,
		"quality": 80,
	}

	assert.Equal(t, "x", opts.String("name", "d"))
	assert.Equal(t, "d", opts.String("missing", "d"))
	assert.True(t, opts.Bool("flag", false))
	assert.Equal(t, 80.0, opts.Float64("quality", 0))
	assert.True(t, opts.Has("flag"))
	assert.False(t, opts.Has("missing"))

	var nilOpts Options
	assert.NotNil(t, nilOpts.Clone())
	n, err := nilOpts.Int("width", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOptions_Int(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int
		wantErr  bool
	}{
		{"int", 80, 80, false},
		{"int64", int64(-4), -4, false},
		{"whole json number", float64(8), 8, false},
		{"fractional", 2.7, 0, true},
		{"fractional float32", float32(0.5), 0, true},
		{"string", "8", 0, true},
		{"bool", true, 0, true},
		{"out of range", 1e12, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Options{"width": tt.value}.Int("width", 1)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err), "got %v", err)
				assert.Contains(t, err.Error(), `"width"`)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExpectValidators(t *testing.T) {
	tests := []struct {
		name    string
		v       Validator
		data    any
		wantErr bool
	}{
		{"bytes ok", ExpectBytes, []byte("x"), false},
		{"bytes bad", ExpectBytes, "x", true},
		{"string ok", ExpectString, "x", false},
		{"text bytes", ExpectText, []byte("x"), false},
		{"text int", ExpectText, 1, true},
		{"mapping map", ExpectMapping, map[string]any{}, false},
		{"mapping list", ExpectMapping, []any{1}, false},
		{"mapping string", ExpectMapping, "x", true},
		{"records ok", ExpectRecords, []any{map[string]any{"a": 1}}, false},
		{"records bad item", ExpectRecords, []any{1}, true},
		{"charset ok", ExpectCharset("roman", "IVXLCDM", true), "mcmxc", false},
		{"charset bad", ExpectCharset("roman", "IVXLCDM", true), "MCMXA", true},
		{"charset trims", ExpectCharset("roman", "IVXLCDM", true), " XIV ", false},
		{"charset inner space", ExpectCharset("roman", "IVXLCDM", true), "X IV", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err, fmt.Sprint(tt.data))
			}
		})
	}
}
