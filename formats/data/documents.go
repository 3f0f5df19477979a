package data

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

func jsonToDict(data any, _ converter.Options) (any, error) {
	var out any
	if err := json.Unmarshal(text(data), &out); err != nil {
		return nil, errors.NewConversion("invalid JSON: "+err.Error(), "json", "dict", err)
	}
	return out, nil
}

// dictToJSON writes compact JSON unless "indent" asks for a positive number
// of spaces. Keys are always sorted, so "sort_keys" needs no handling.
func dictToJSON(data any, opts converter.Options) (any, error) {
	indent, err := opts.Int("indent", 0)
	if err != nil {
		return nil, err
	}

	var b []byte
	if indent > 0 {
		b, err = json.MarshalIndent(data, "", strings.Repeat(" ", indent))
	} else {
		b, err = json.Marshal(data)
	}
	if err != nil {
		return nil, errors.NewConversion("failed to serialize JSON: "+err.Error(), "dict", "json", err)
	}
	return string(b), nil
}

func yamlToDict(data any, _ converter.Options) (any, error) {
	var out any
	if err := yaml.Unmarshal(text(data), &out); err != nil {
		return nil, errors.NewConversion("invalid YAML: "+err.Error(), "yaml", "dict", err)
	}
	return stringKeys(out), nil
}

// stringKeys rewrites the map[any]any that yaml produces for non-string
// keys, such as "1: a", into map[string]any.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = stringKeys(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = stringKeys(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = stringKeys(item)
		}
		return t
	}
	return v
}

// dictToYAML indents nested blocks by "indent" spaces (default 2).
func dictToYAML(data any, opts converter.Options) (any, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	indent, err := opts.Int("indent", 2)
	if err != nil {
		return nil, err
	}
	enc.SetIndent(max(indent, 1))
	if err := enc.Encode(data); err != nil {
		return nil, errors.NewConversion("failed to serialize YAML: "+err.Error(), "dict", "yaml", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.NewConversion("failed to serialize YAML: "+err.Error(), "dict", "yaml", err)
	}
	return sb.String(), nil
}
