package data

import (
	"encoding/xml"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

const (
	xmlAttrKey = "@attributes"
	xmlTextKey = "#text"
)

// xmlNode captures any element with its attributes, text and children.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

// xmlToDict maps the root element to {tag: value}. A leaf without
// attributes becomes its trimmed text, repeated child tags become lists
// and an empty element becomes nil. Namespaces are reduced to local names.
func xmlToDict(data any, _ converter.Options) (any, error) {
	var root xmlNode
	if err := xml.Unmarshal(text(data), &root); err != nil {
		return nil, errors.NewConversion("invalid XML: "+err.Error(), "xml", "dict", err)
	}
	return map[string]any{root.XMLName.Local: root.value()}, nil
}

// namespaceDecl reports xmlns and xmlns:prefix attributes.
func namespaceDecl(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || a.Name.Local == "xmlns"
}

func (n *xmlNode) hasAttrs() bool {
	return slices.ContainsFunc(n.Attrs, func(a xml.Attr) bool { return !namespaceDecl(a) })
}

func (n *xmlNode) value() any {
	content := strings.TrimSpace(n.Content)
	if len(n.Children) == 0 && !n.hasAttrs() {
		if content == "" {
			return nil
		}
		return content
	}

	out := make(map[string]any)
	attrs := make(map[string]any, len(n.Attrs))
	for _, a := range n.Attrs {
		if namespaceDecl(a) {
			continue
		}
		attrs[a.Name.Local] = a.Value
	}
	if len(attrs) > 0 {
		out[xmlAttrKey] = attrs
	}
	if content != "" {
		out[xmlTextKey] = content
	}
	for i := range n.Children {
		child := &n.Children[i]
		tag, v := child.XMLName.Local, child.value()
		switch existing := out[tag].(type) {
		case nil:
			if _, seen := out[tag]; seen {
				out[tag] = []any{nil, v}
			} else {
				out[tag] = v
			}
		case []any:
			out[tag] = append(existing, v)
		default:
			out[tag] = []any{existing, v}
		}
	}
	return out
}

// dictToXML writes a single-key mapping as that root element, otherwise
// wraps the mapping in "root_name" (default "root"). "pretty_print"
// (default true) indents by two spaces.
func dictToXML(data any, opts converter.Options) (any, error) {
	doc := data.(map[string]any)
	root, value := opts.String("root_name", "root"), any(doc)
	if len(doc) == 1 {
		for k, v := range doc {
			root, value = k, v
		}
	}

	var sb strings.Builder
	enc := xml.NewEncoder(&sb)
	if opts.Bool("pretty_print", true) {
		enc.Indent("", "  ")
	}
	if err := encodeXMLElement(enc, root, value); err != nil {
		return nil, errors.NewConversion("failed to serialize XML: "+err.Error(), "dict", "xml", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.NewConversion("failed to serialize XML: "+err.Error(), "dict", "xml", err)
	}
	return sb.String(), nil
}

func encodeXMLElement(enc *xml.Encoder, name string, value any) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	m, isMap := value.(map[string]any)
	if isMap {
		if attrs, ok := m[xmlAttrKey].(map[string]any); ok {
			for _, k := range slices.Sorted(maps.Keys(attrs)) {
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: fmt.Sprint(attrs[k])})
			}
		}
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	switch {
	case isMap:
		if t, ok := m[xmlTextKey]; ok {
			if err := enc.EncodeToken(xml.CharData(fmt.Sprint(t))); err != nil {
				return err
			}
		}
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if k == xmlAttrKey || k == xmlTextKey {
				continue
			}
			items, ok := m[k].([]any)
			if !ok {
				items = []any{m[k]}
			}
			for _, item := range items {
				if err := encodeXMLElement(enc, k, item); err != nil {
					return err
				}
			}
		}
	case value != nil:
		if err := enc.EncodeToken(xml.CharData(fmt.Sprint(value))); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
