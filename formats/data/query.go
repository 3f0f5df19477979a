package data

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

// queryToDict maps each key to its value, or to a []any when the key
// repeats. Blank values are dropped unless keep_blank_values is true.
func queryToDict(data any, opts converter.Options) (any, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(data.(string), "?"))
	if err != nil {
		return nil, errors.NewConversion("invalid query string: "+err.Error(), "query_string", "dict", err)
	}

	keepBlank := opts.Bool("keep_blank_values", false)
	out := make(map[string]any, len(values))
	for key, vals := range values {
		kept := make([]any, 0, len(vals))
		for _, v := range vals {
			if v != "" || keepBlank {
				kept = append(kept, v)
			}
		}
		switch len(kept) {
		case 0:
		case 1:
			out[key] = kept[0]
		default:
			out[key] = kept
		}
	}
	return out, nil
}

// dictToQuery encodes keys in sorted order; list values repeat the key.
func dictToQuery(data any, _ converter.Options) (any, error) {
	values := url.Values{}
	for key, v := range data.(map[string]any) {
		switch x := v.(type) {
		case []any:
			for _, item := range x {
				values.Add(key, cell(item))
			}
		case []string:
			for _, item := range x {
				values.Add(key, item)
			}
		case map[string]any:
			return nil, errors.NewConversion(fmt.Sprintf("nested mapping under %q cannot be query encoded", key),
				"dict", "query_string", nil)
		default:
			values.Add(key, cell(x))
		}
	}
	return values.Encode(), nil
}
