package encoding

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(registry.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, Register(reg))
	return reg
}

func TestRegister_Pairs(t *testing.T) {
	reg := newRegistry(t)

	for _, c := range Converters() {
		assert.True(t, reg.IsSupported(c.From(), c.To()), "%s -> %s", c.From(), c.To())
		assert.True(t, reg.IsSupported(c.To(), c.From()), "reverse of %s -> %s", c.From(), c.To())
	}
	assert.Equal(t, 2*len(Converters()), reg.Len())
}

func TestConvert(t *testing.T) {
	reg := newRegistry(t)

	tests := []struct {
		name     string
		from, to string
		input    any
		opts     converter.Options
		expected any
	}{
		{"bytes to base64", "binary", "base64", []byte("Hello World"), nil, "SGVsbG8gV29ybGQ="},
		{"base64 to bytes", "base64", "binary", "SGVsbG8g\nV29ybGQ=", nil, []byte("Hello World")},
		{"bit string to base64", "binary", "base64", "01001000 01101001", nil, "SGk="},
		{"short bit string is left padded", "binary", "hex", "101", nil, "05"},
		{"bytes to hex", "binary", "hex", []byte{0xde, 0xad, 0xbe, 0xef}, nil, "deadbeef"},
		{"hex uppercase with separator", "binary", "hex", []byte{0xde, 0xad, 0xbe, 0xef},
			converter.Options{"uppercase": true, "separator": ":"}, "DE:AD:BE:EF"},
		{"hex with prefix and separators", "hex", "binary", "0xDE:AD-be ef", nil, []byte{0xde, 0xad, 0xbe, 0xef}},
		{"bytes to base32", "binary", "base32", []byte("hi"), nil, "NBUQ===="},
		{"base32 to bytes", "base32", "binary", "nbuq====", nil, []byte("hi")},
		{"url encode", "text", "url", "a b/c?d=é", nil, "a%20b%2Fc%3Fd%3D%C3%A9"},
		{"url encode with safe", "text", "url", "a b/c", converter.Options{"safe": "/"}, "a%20b/c"},
		{"url decode", "url", "text", "a%20b%2Fc", nil, "a b/c"},
		{"html escape", "text", "html", `<a href="x">&</a>`, nil, "&lt;a href=&#34;x&#34;&gt;&amp;&lt;/a&gt;"},
		{"html escape without quotes", "text", "html", `"<'`, converter.Options{"quote": false}, `"&lt;'`},
		{"html unescape", "html", "text", "&lt;b&gt; &amp; &quot;", nil, `<b> & "`},
		{"ascii replace", "text", "ascii", "café", nil, "caf?"},
		{"ascii ignore", "text", "ascii", "café", converter.Options{"errors": "ignore"}, "caf"},
		{"ascii passthrough", "ascii", "text", "plain", nil, "plain"},
		{"base64 to hex", "base64", "hex", "3q2+7w==", nil, "deadbeef"},
		{"hex to base64", "hex", "base64", "deadbeef", nil, "3q2+7w=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Convert(tt.input, tt.from, tt.to, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestConvert_Failures(t *testing.T) {
	reg := newRegistry(t)

	tests := []struct {
		name       string
		from, to   string
		input      any
		opts       converter.Options
		validation bool
	}{
		{"bit string with other digits", "binary", "base64", "01201", nil, true},
		{"binary from int", "binary", "hex", 42, nil, true},
		{"base64 from bytes", "base64", "binary", []byte("abc"), nil, true},
		{"malformed base64", "base64", "binary", "not base64!", nil, false},
		{"odd hex", "hex", "binary", "abc", nil, false},
		{"bad percent escape", "url", "text", "%zz", nil, false},
		{"ascii strict", "text", "ascii", "café", converter.Options{"errors": "strict"}, false},
		{"ascii unknown mode", "text", "ascii", "café", converter.Options{"errors": "loud"}, true},
		{"ascii reverse rejects unicode", "ascii", "text", "naïve", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Convert(tt.input, tt.from, tt.to, tt.opts)
			require.Error(t, err)
			if tt.validation {
				assert.True(t, errors.IsValidation(err), "got %v", err)
			} else {
				assert.True(t, errors.IsConversion(err), "got %v", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	payload := []byte{0x00, 0x01, 0x7f, 0x80, 0xff, 'G', 'o'}

	for _, target := range []string{"base64", "hex", "base32"} {
		t.Run(target, func(t *testing.T) {
			encoded, err := reg.Convert(payload, "binary", target, nil)
			require.NoError(t, err)
			decoded, err := reg.Convert(encoded, target, "binary", nil)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}

	text := "Grüße & <tags> / ?q=1"
	for _, target := range []string{"url", "html"} {
		t.Run(target, func(t *testing.T) {
			encoded, err := reg.Convert(text, "text", target, nil)
			require.NoError(t, err)
			decoded, err := reg.Convert(encoded, target, "text", nil)
			require.NoError(t, err)
			assert.Equal(t, text, decoded)
		})
	}
}

func TestParseBits(t *testing.T) {
	b, err := parseBits("1 00000001")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x01}, b)

	b, err = parseBits("")
	require.NoError(t, err)
	assert.Empty(t, b)
}
