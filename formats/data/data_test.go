package data

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
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

	assert.Equal(t, 15, reg.Len())
	assert.True(t, reg.IsSupported("xml", "dict"))
	assert.True(t, reg.IsSupported("dict", "xml"))
	assert.True(t, reg.IsSupported("dict", "cbor"))
	assert.True(t, reg.IsSupported("dict_list", "csv"))
	assert.True(t, reg.IsSupported("hcl", "dict"))
	assert.False(t, reg.IsSupported("dict", "hcl"), "hcl is decode only")
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
		{"json to dict", "json", "dict", `{"b":1,"a":[true,null,"x"]}`, nil,
			map[string]any{"b": float64(1), "a": []any{true, nil, "x"}}},
		{"json bytes to dict", "json", "dict", []byte(`[1,2]`), nil, []any{float64(1), float64(2)}},
		{"dict to json compact by default", "dict", "json", map[string]any{"a": 1}, nil, `{"a":1}`},
		{"dict to json indented", "dict", "json", map[string]any{"a": 1}, converter.Options{"indent": 2}, "{\n  \"a\": 1\n}"},
		{"dict to json compact", "dict", "json", map[string]any{"b": 1, "a": "x"},
			converter.Options{"indent": 0}, `{"a":"x","b":1}`},
		{"yaml to dict", "yaml", "dict", "name: svc\nport: 8080\ntags:\n  - a\n  - b\n", nil,
			map[string]any{"name": "svc", "port": 8080, "tags": []any{"a", "b"}}},
		{"yaml integer keys", "yaml", "dict", "1: a\n2:\n  3: b\n", nil,
			map[string]any{"1": "a", "2": map[string]any{"3": "b"}}},
		{"yaml keys inside lists", "yaml", "dict", "- true: x\n", nil,
			[]any{map[string]any{"true": "x"}}},
		{"xml to dict", "xml", "dict",
			`<book id="123"><title>Go</title><tag>a</tag><tag>b</tag><note/></book>`, nil,
			map[string]any{"book": map[string]any{
				"@attributes": map[string]any{"id": "123"},
				"title":       "Go",
				"tag":         []any{"a", "b"},
				"note":        nil,
			}}},
		{"xml mixed text", "xml", "dict", `<p lang="en"> hi <b>x</b></p>`, nil,
			map[string]any{"p": map[string]any{
				"@attributes": map[string]any{"lang": "en"},
				"#text":       "hi",
				"b":           "x",
			}}},
		{"xml namespaces use local names", "xml", "dict", `<a:doc xmlns:a="urn:x"><a:v>1</a:v></a:doc>`, nil,
			map[string]any{"doc": map[string]any{"v": "1"}}},
		{"dict to xml compact", "dict", "xml",
			map[string]any{"book": map[string]any{
				"@attributes": map[string]any{"id": 7},
				"title":       "Go",
				"tag":         []any{"a", "b"},
			}},
			converter.Options{"pretty_print": false},
			`<book id="7"><tag>a</tag><tag>b</tag><title>Go</title></book>`},
		{"dict to xml wraps several keys", "dict", "xml", map[string]any{"a": 1, "b": nil},
			converter.Options{"pretty_print": false, "root_name": "cfg"}, `<cfg><a>1</a><b></b></cfg>`},
		{"dict to xml pretty", "dict", "xml", map[string]any{"r": map[string]any{"x": "1"}}, nil,
			"<r>\n  <x>1</x>\n</r>"},
		{"dict to yaml", "dict", "yaml", map[string]any{"a": 1, "b": "x"}, nil, "a: 1\nb: x\n"},
		{"dict to canonical cbor", "dict", "cbor", map[string]any{"b": 1, "a": 2}, nil,
			[]byte{0xa2, 0x61, 'a', 0x02, 0x61, 'b', 0x01}},
		{"csv to records", "csv", "dict_list", "name,age\nann,30\nbob,41\n", nil,
			[]map[string]any{{"name": "ann", "age": "30"}, {"name": "bob", "age": "41"}}},
		{"csv without header", "csv", "dict_list", "a;b\n", converter.Options{"has_header": false, "delimiter": ";"},
			[]map[string]any{{"column_1": "a", "column_2": "b"}}},
		{"csv short row", "csv", "dict_list", "a,b\n1\n", nil, []map[string]any{{"a": "1", "b": ""}}},
		{"records to csv", "dict_list", "csv",
			[]any{map[string]any{"name": "ann", "age": 30}, map[string]any{"name": "bob"}}, nil,
			"age,name\n30,ann\n,bob\n"},
		{"records to csv without header", "dict_list", "csv",
			[]map[string]any{{"x": "1"}}, converter.Options{"include_header": false}, "1\n"},
		{"query to dict", "query_string", "dict", "?a=1&b=2&b=3&c=", nil,
			map[string]any{"a": "1", "b": []any{"2", "3"}}},
		{"query keeps blanks", "query_string", "dict", "c=", converter.Options{"keep_blank_values": true},
			map[string]any{"c": ""}},
		{"dict to query", "dict", "query_string", map[string]any{"b": []any{"2", "3"}, "a": 1}, nil, "a=1&b=2&b=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Convert(tt.input, tt.from, tt.to, tt.opts)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	doc := map[string]any{
		"name":  "formatkit",
		"ratio": 0.5,
		"tags":  []any{"a", "b"},
		"inner": map[string]any{"ok": true},
	}

	for _, target := range []string{"json", "yaml", "protobuf"} {
		t.Run(target, func(t *testing.T) {
			encoded, err := reg.Convert(doc, "dict", target, nil)
			require.NoError(t, err)
			decoded, err := reg.Convert(encoded, target, "dict", nil)
			require.NoError(t, err)
			assert.Equal(t, doc, decoded)
		})
	}

	t.Run("cbor", func(t *testing.T) {
		encoded, err := reg.Convert(map[string]any{"n": 42, "s": "x"}, "dict", "cbor", nil)
		require.NoError(t, err)
		decoded, err := reg.Convert(encoded, "cbor", "dict", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"n": uint64(42), "s": "x"}, decoded)
	})
}

func TestHCLToDict(t *testing.T) {
	reg := newRegistry(t)
	src := `
name    = "svc"
port    = 8080
enabled = true
tags    = ["a", "b"]
limits  = { cpu = 2 }

server "web" {
  host = "localhost"
}

server "api" {
  host = "127.0.0.1"
}

listener {
  port = 80
}

listener {
  port = 443
}
`
	got, err := reg.Convert(src, "hcl", "dict", nil)
	require.NoError(t, err)

	expected := map[string]any{
		"name":    "svc",
		"port":    float64(8080),
		"enabled": true,
		"tags":    []any{"a", "b"},
		"limits":  map[string]any{"cpu": float64(2)},
		"server": map[string]any{
			"web": map[string]any{"host": "localhost"},
			"api": map[string]any{"host": "127.0.0.1"},
		},
		"listener": []any{
			map[string]any{"port": float64(80)},
			map[string]any{"port": float64(443)},
		},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("unexpected HCL document (-want +got):\n%s", diff)
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
		{"json from number", "json", "dict", 42, nil, true},
		{"malformed json", "json", "dict", "{", nil, false},
		{"malformed yaml", "yaml", "dict", "a: [", nil, false},
		{"unclosed xml", "xml", "dict", "<root><unclosed>", nil, false},
		{"xml from list", "dict", "xml", []any{1}, nil, true},
		{"cbor from string", "cbor", "dict", "a2", nil, true},
		{"truncated cbor", "cbor", "dict", []byte{0xa2, 0x61}, nil, false},
		{"protobuf from list", "dict", "protobuf", []any{1}, nil, true},
		{"protobuf unsupported value", "dict", "protobuf", map[string]any{"c": make(chan int)}, nil, false},
		{"records not mappings", "dict_list", "csv", []any{"x"}, nil, true},
		{"csv long row", "csv", "dict_list", "a\n1,2\n", nil, false},
		{"csv bad delimiter", "csv", "dict_list", "a", converter.Options{"delimiter": "ab"}, true},
		{"query nested mapping", "dict", "query_string", map[string]any{"a": map[string]any{}}, nil, false},
		{"bad query escape", "query_string", "dict", "a=%zz", nil, false},
		{"hcl syntax", "hcl", "dict", "name = ", nil, false},
		{"hcl variable", "hcl", "dict", "name = var.x", nil, false},
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
