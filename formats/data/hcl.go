package data

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

// hclToDict evaluates attributes without variables or functions. Blocks nest
// by type then labels; a repeated block path becomes a list.
func hclToDict(data any, _ converter.Options) (any, error) {
	file, diags := hclsyntax.ParseConfig(text(data), "input.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, errors.NewConversion("invalid HCL: "+diags.Error(), "hcl", "dict", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.NewConversion(fmt.Sprintf("unexpected HCL body %T", file.Body), "hcl", "dict", nil)
	}

	out, err := bodyToMap(body)
	if err != nil {
		return nil, errors.NewConversion("failed to evaluate HCL: "+err.Error(), "hcl", "dict", err)
	}
	return out, nil
}

func bodyToMap(body *hclsyntax.Body) (map[string]any, error) {
	out := make(map[string]any, len(body.Attributes)+len(body.Blocks))
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = native
	}

	for _, block := range body.Blocks {
		inner, err := bodyToMap(block.Body)
		if err != nil {
			return nil, err
		}
		path := append([]string{block.Type}, block.Labels...)
		if err := insertBlock(out, path, inner); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func insertBlock(dst map[string]any, path []string, block map[string]any) error {
	for _, key := range path[:len(path)-1] {
		switch next := dst[key].(type) {
		case nil:
			m := map[string]any{}
			dst[key] = m
			dst = m
		case map[string]any:
			dst = next
		default:
			return fmt.Errorf("block %q conflicts with an existing %T", key, next)
		}
	}

	last := path[len(path)-1]
	switch existing := dst[last].(type) {
	case nil:
		dst[last] = block
	case map[string]any:
		dst[last] = []any{existing, block}
	case []any:
		dst[last] = append(existing, block)
	default:
		return fmt.Errorf("block %q conflicts with attribute of type %T", last, existing)
	}
	return nil
}

// ctyToNative converts a cty value to strings, float64, bools, []any and
// map[string]any. Null and unknown values become nil.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		list := []any{}
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, native)
		}
		return list, nil
	case ty.IsObjectType() || ty.IsMapType():
		m := map[string]any{}
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key.AsString(), err)
			}
			m[key.AsString()] = native
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
