package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/formatkit/config"
	"github.com/c360/formatkit/metric"
	"github.com/c360/formatkit/natsclient"
	"github.com/c360/formatkit/registry"
)

// runCLI executes the command line with captured streams.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Version(t *testing.T) {
	out, _, err := runCLI(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "formatkit version "+Version)
}

func TestRun_Usage(t *testing.T) {
	_, stderr, err := runCLI(t, "")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "convert")
	assert.Contains(t, stderr, "serve")

	_, stderr, err = runCLI(t, "", "frobnicate")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	out, _, err := runCLI(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: formatkit")
}

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad log level", []string{"--log-level", "loud", "formats"}},
		{"bad log format", []string{"--log-format", "xml", "formats"}},
		{"unknown group", []string{"--disable", "video", "formats"}},
		{"missing config file", []string{"--config", "/nonexistent/formatkit.yaml", "formats"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid flags")
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		expected string
	}{
		{
			name:     "text argument",
			args:     []string{"convert", "--from", "text", "--to", "url", "a b&c"},
			expected: "a%20b%26c\n",
		},
		{
			name:     "options",
			args:     []string{"convert", "--from", "decimal", "--to", "hex_num", "--opt", "include_prefix=true", "--opt", "uppercase=true", "255"},
			expected: "0xFF\n",
		},
		{
			name:     "stdin with trailing newline",
			stdin:    "MCMXCIV\n",
			args:     []string{"convert", "--from", "roman", "--to", "decimal", "--in", "-"},
			expected: "1994\n",
		},
		{
			name:     "bytes printed as base64",
			args:     []string{"convert", "--from", "hex", "--to", "binary", "6869"},
			expected: "aGk=\n",
		},
		{
			name:     "dict from json",
			args:     []string{"convert", "--from", "dict", "--to", "query_string", `{"q":"go","page":2}`},
			expected: "page=2&q=go\n",
		},
		{
			name:     "base64 input mode",
			args:     []string{"convert", "--from", "binary", "--to", "hex", "--input", "base64", "aGk="},
			expected: "6869\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestConvert_Files(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "hello.bin")
	out := filepath.Join(dir, "hello.b64")
	require.NoError(t, os.WriteFile(in, []byte("hello"), 0o600))

	stdout, _, err := runCLI(t, "", "convert", "--from", "binary", "--to", "base64", "--in", in, "--out", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", string(got))

	raw := filepath.Join(dir, "hello.raw")
	_, _, err = runCLI(t, "", "convert", "--from", "base64", "--to", "binary", "--out", raw, "aGVsbG8=")
	require.NoError(t, err)
	got, err = os.ReadFile(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		usage   bool
		message string
	}{
		{"missing formats", []string{"convert", "hello"}, true, ""},
		{"no data", []string{"convert", "--from", "text", "--to", "url"}, false, "exactly one DATA argument"},
		{"data and file", []string{"convert", "--from", "text", "--to", "url", "--in", "-", "x"}, false, "cannot be combined"},
		{"unsupported", []string{"convert", "--from", "pdf", "--to", "mp3", "x"}, false, "Available formats"},
		{"validation", []string{"convert", "--from", "decimal", "--to", "roman", "9000"}, false, "validation failed"},
		{"bad option", []string{"convert", "--from", "text", "--to", "url", "--opt", "novalue", "x"}, true, ""},
		{"disabled group", []string{"--disable", "numbers", "convert", "--from", "decimal", "--to", "roman", "4"}, false, "not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, "", tt.args...)
			require.Error(t, err)
			if tt.usage {
				assert.ErrorIs(t, err, errUsage)
				return
			}
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDecodeInput(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		from     string
		mode     string
		stream   bool
		expected any
	}{
		{"auto text", "abc\n", "text", "auto", false, "abc\n"},
		{"auto text from stream", "abc\r\n", "text", "auto", true, "abc"},
		{"auto bytes", "abc", "png", "auto", false, []byte("abc")},
		{"auto json", `[{"a":"1"}]`, "dict_list", "auto", false, []any{map[string]any{"a": "1"}}},
		{"forced text", "abc\n", "png", "text", false, "abc\n"},
		{"base64", "aGk=\n", "binary", "base64", false, []byte("hi")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeInput([]byte(tt.raw), tt.from, tt.mode, tt.stream)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := decodeInput([]byte("x"), "text", "hex", false)
	assert.Error(t, err)
}

func TestParseOptionValue(t *testing.T) {
	assert.Equal(t, 2, parseOptionValue("2"))
	assert.Equal(t, 1, parseOptionValue("1"))
	assert.Equal(t, 0.5, parseOptionValue("0.5"))
	assert.Equal(t, true, parseOptionValue("true"))
	assert.Equal(t, "-_.", parseOptionValue("-_."))
}

func TestListingCommands(t *testing.T) {
	t.Run("formats", func(t *testing.T) {
		out, _, err := runCLI(t, "", "formats")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Contains(t, lines, "base64")
		assert.Contains(t, lines, "roman")
		assert.IsIncreasing(t, lines)
	})

	t.Run("formats json", func(t *testing.T) {
		out, _, err := runCLI(t, "", "formats", "--output", "json")
		require.NoError(t, err)
		var formats []string
		require.NoError(t, json.Unmarshal([]byte(out), &formats))
		assert.Contains(t, formats, "png")
	})

	t.Run("list filtered", func(t *testing.T) {
		out, _, err := runCLI(t, "", "list", "--format", "roman", "--output", "json")
		require.NoError(t, err)
		var conversions []registry.Conversion
		require.NoError(t, json.Unmarshal([]byte(out), &conversions))
		require.Len(t, conversions, 2)
		for _, c := range conversions {
			assert.True(t, c.From == "roman" || c.To == "roman")
		}
	})

	t.Run("list table", func(t *testing.T) {
		out, _, err := runCLI(t, "", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "FROM")
		assert.Contains(t, out, "conversions")
	})

	t.Run("info", func(t *testing.T) {
		out, _, err := runCLI(t, "", "info", "roman")
		require.NoError(t, err)
		assert.Contains(t, out, "Format: roman")
		assert.Contains(t, out, "decimal")
	})

	t.Run("info unknown", func(t *testing.T) {
		_, _, err := runCLI(t, "", "info", "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format 'nope'")
	})

	t.Run("stats json", func(t *testing.T) {
		out, _, err := runCLI(t, "", "--disable", "images", "stats", "--output", "json")
		require.NoError(t, err)
		var stats registry.Stats
		require.NoError(t, json.Unmarshal([]byte(out), &stats))
		assert.Positive(t, stats.TotalPairs)

		all, _, err := runCLI(t, "", "stats", "--output", "json")
		require.NoError(t, err)
		var full registry.Stats
		require.NoError(t, json.Unmarshal([]byte(all), &full))
		assert.Greater(t, full.TotalPairs, stats.TotalPairs)
	})

	t.Run("bad output", func(t *testing.T) {
		_, _, err := runCLI(t, "", "formats", "--output", "xml")
		require.Error(t, err)
	})
}

func TestServe_Validate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formatkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 18080\nmetrics:\n  enabled: false\n"), 0o600))

	_, _, err := runCLI(t, "", "--config", path, "serve", "--validate")
	require.NoError(t, err)
}

func TestServe_NothingEnabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formatkit.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"http":{"enabled":false},"nats":{"enabled":false},"metrics":{"enabled":false}}`), 0o600))

	_, _, err := runCLI(t, "", "--config", path, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to serve")
}

func TestNATSClientOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		mutate  func(*config.NATSConfig)
		wantErr bool
	}{
		{"defaults", func(*config.NATSConfig) {}, false},
		{"token", func(c *config.NATSConfig) { c.Token = "t0k" }, false},
		{"user and password", func(c *config.NATSConfig) { c.User, c.Password = "svc", "pw" }, false},
		{"zero drain timeout", func(c *config.NATSConfig) { c.DrainTimeout = 0 }, true},
		{"zero circuit threshold", func(c *config.NATSConfig) { c.CircuitThreshold = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().NATS
			tt.mutate(&cfg)

			opts := natsClientOptions(cfg, logger, metric.NewMetrics(), func(bool) {})
			client, err := natsclient.NewClient(strings.Join(cfg.URLs, ","), opts...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "nats://localhost:4222", client.URL())
		})
	}
}

func TestWriteOutput_BinaryStdout(t *testing.T) {
	var stdout bytes.Buffer
	a := &app{stdout: &stdout}

	require.NoError(t, a.writeOutput([]byte{0xff, 0x00}, "", true))
	assert.Equal(t, []byte{0xff, 0x00}, stdout.Bytes())

	stdout.Reset()
	require.NoError(t, a.writeOutput([]byte{0xff, 0x00}, "", false))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xff, 0x00})+"\n", stdout.String())

	stdout.Reset()
	require.NoError(t, a.writeOutput(int64(42), "", false))
	assert.Equal(t, "42\n", stdout.String())
}
