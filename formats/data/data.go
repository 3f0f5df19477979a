// Package data registers structured data converters. The "dict" format is a
// decoded document: map[string]any or []any. "dict_list" is a list of records.
//
// Reversible pairs: json, yaml, xml, cbor, protobuf (structpb.Struct wire
// bytes) and query_string against dict, and csv against dict_list. HCL is
// decode only.
package data

import (
	"fmt"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/registry"
)

// Converters returns the group's converters in registration order.
func Converters() []converter.Converter {
	return []converter.Converter{
		converter.NewReversible("json", "dict", jsonToDict, dictToJSON,
			converter.WithDescription("Parse JSON to a dictionary and serialize it back"),
			converter.WithValidator(converter.ExpectText),
			converter.WithReverseValidator(converter.ExpectMapping)),
		converter.NewReversible("yaml", "dict", yamlToDict, dictToYAML,
			converter.WithDescription("Parse YAML to a dictionary and serialize it back"),
			converter.WithValidator(converter.ExpectText),
			converter.WithReverseValidator(converter.ExpectMapping)),
		converter.NewReversible("xml", "dict", xmlToDict, dictToXML,
			converter.WithDescription("Parse simple XML to a dictionary and serialize it back"),
			converter.WithValidator(converter.ExpectText),
			converter.WithReverseValidator(expectObject)),
		converter.NewReversible("cbor", "dict", cborToDict, dictToCBOR,
			converter.WithDescription("Decode CBOR to a dictionary and encode it canonically"),
			converter.WithValidator(converter.ExpectBytes),
			converter.WithReverseValidator(converter.ExpectMapping),
			converter.WithoutOptions()),
		converter.NewReversible("protobuf", "dict", protobufToDict, dictToProtobuf,
			converter.WithDescription("Decode a protobuf Struct to a dictionary and encode it back"),
			converter.WithValidator(converter.ExpectBytes),
			converter.WithReverseValidator(expectObject),
			converter.WithoutOptions()),
		converter.NewReversible("csv", "dict_list", csvToRecords, recordsToCSV,
			converter.WithDescription("Parse CSV rows to records and write records as CSV"),
			converter.WithValidator(converter.ExpectText),
			converter.WithReverseValidator(converter.ExpectRecords)),
		converter.NewReversible("query_string", "dict", queryToDict, dictToQuery,
			converter.WithDescription("Parse a URL query string to a dictionary and encode it back"),
			converter.WithValidator(converter.ExpectString),
			converter.WithReverseValidator(expectObject)),
		converter.New("hcl", "dict", hclToDict,
			converter.WithDescription("Parse an HCL document to a dictionary"),
			converter.WithValidator(converter.ExpectText),
			converter.WithoutOptions()),
	}
}

// Register adds every data converter to reg.
func Register(reg *registry.Registry) error {
	for _, c := range Converters() {
		if err := reg.Register(c); err != nil {
			return errors.WrapInvalid(err, "data", "Register", c.From()+" -> "+c.To())
		}
	}
	return nil
}

func expectObject(data any) error {
	if _, ok := data.(map[string]any); !ok {
		return fmt.Errorf("requires a mapping, got %T", data)
	}
	return nil
}

// text returns string or []byte input as bytes.
func text(data any) []byte {
	switch v := data.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	}
	return nil
}

// normalizeRecords turns []any of mappings into []map[string]any.
func normalizeRecords(data any) []map[string]any {
	switch v := data.(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i] = item.(map[string]any)
		}
		return out
	}
	return nil
}
