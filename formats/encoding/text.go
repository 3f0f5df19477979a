package encoding

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

const upperHex = "0123456789ABCDEF"

// textToURL percent-encodes every byte outside the RFC 3986 unreserved set,
// except characters listed in the "safe" option.
func textToURL(data any, opts converter.Options) (any, error) {
	s := data.(string)
	safe := opts.String("safe", "")

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || (c < utf8.RuneSelf && strings.IndexByte(safe, c) >= 0) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperHex[c>>4])
		sb.WriteByte(upperHex[c&0x0f])
	}
	return sb.String(), nil
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '_' || c == '.' || c == '~'
}

func urlToText(data any, _ converter.Options) (any, error) {
	s, err := url.PathUnescape(data.(string))
	if err != nil {
		return nil, errors.NewConversion("failed to URL decode text: "+err.Error(), "url", "text", err)
	}
	return s, nil
}

var minimalHTML = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// textToHTML escapes &, < and >, plus quotes unless "quote" is false.
func textToHTML(data any, opts converter.Options) (any, error) {
	s := data.(string)
	if opts.Bool("quote", true) {
		return html.EscapeString(s), nil
	}
	return minimalHTML.Replace(s), nil
}

func htmlToText(data any, _ converter.Options) (any, error) {
	return html.UnescapeString(data.(string)), nil
}

// textToASCII handles non-ASCII runes per the "errors" option:
// replace (default, '?'), ignore (drop) or strict (fail).
func textToASCII(data any, opts converter.Options) (any, error) {
	s := data.(string)
	mode := opts.String("errors", "replace")

	var sb strings.Builder
	sb.Grow(len(s))
	for i, r := range s {
		if r < utf8.RuneSelf {
			sb.WriteRune(r)
			continue
		}
		switch mode {
		case "replace":
			sb.WriteByte('?')
		case "ignore":
		case "strict":
			return nil, errors.NewConversion(
				fmt.Sprintf("non-ASCII character %q at position %d", r, i), "text", "ascii", nil)
		default:
			return nil, errors.Validationf("text", "unknown errors mode %q (use replace, ignore or strict)", mode)
		}
	}
	return sb.String(), nil
}

func asciiToText(data any, _ converter.Options) (any, error) {
	s := data.(string)
	for i, r := range s {
		if r >= utf8.RuneSelf {
			return nil, errors.NewConversion(
				fmt.Sprintf("input contains non-ASCII character %q at position %d", r, i), "ascii", "text", nil)
		}
	}
	return s, nil
}
