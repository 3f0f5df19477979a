package converter

import (
	"fmt"
	"strings"
)

// ExpectBytes accepts []byte input only.
func ExpectBytes(data any) error {
	if _, ok := data.([]byte); !ok {
		return fmt.Errorf("requires bytes input, got %T", data)
	}
	return nil
}

// ExpectString accepts string input only.
func ExpectString(data any) error {
	if _, ok := data.(string); !ok {
		return fmt.Errorf("requires string input, got %T", data)
	}
	return nil
}

// ExpectText accepts a string or a byte slice.
func ExpectText(data any) error {
	switch data.(type) {
	case string, []byte:
		return nil
	}
	return fmt.Errorf("requires string or bytes input, got %T", data)
}

// ExpectMapping accepts dict-like input: a map or a slice of values.
func ExpectMapping(data any) error {
	switch data.(type) {
	case map[string]any, []any, []map[string]any:
		return nil
	}
	return fmt.Errorf("requires a mapping or sequence, got %T", data)
}

// ExpectRecords accepts a list of records.
func ExpectRecords(data any) error {
	switch v := data.(type) {
	case []map[string]any:
		return nil
	case []any:
		for i, item := range v {
			if _, ok := item.(map[string]any); !ok {
				return fmt.Errorf("record %d must be a mapping, got %T", i, item)
			}
		}
		return nil
	}
	return fmt.Errorf("requires a list of mappings, got %T", data)
}

// ExpectCharset accepts strings whose characters all belong to charset,
// ignoring case when fold is true. Surrounding whitespace is ignored.
func ExpectCharset(name, charset string, fold bool) Validator {
	if fold {
		charset = strings.ToUpper(charset)
	}
	return func(data any) error {
		s, ok := data.(string)
		if !ok {
			return fmt.Errorf("%s input requires string, got %T", name, data)
		}
		check := strings.TrimSpace(s)
		if fold {
			check = strings.ToUpper(s)
		}
		for _, r := range check {
			if !strings.ContainsRune(charset, r) {
				return fmt.Errorf("invalid %s character %q in %q", name, r, s)
			}
		}
		return nil
	}
}
