// Package encoding registers reversible text and binary encodings: base64,
// base32, hex, percent (URL) encoding, HTML entities and ASCII.
//
// The "binary" format accepts either raw bytes or a string of 0s and 1s;
// bit strings are left padded with zeros to a whole number of bytes.
package encoding

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/registry"
)

// Converters returns the group's converters in registration order.
func Converters() []converter.Converter {
	return []converter.Converter{
		converter.NewReversible("binary", "base64", binaryToBase64, base64ToBinary,
			converter.WithDescription("Convert binary data to/from Base64 encoding"),
			converter.WithValidator(ExpectBinary),
			converter.WithReverseValidator(converter.ExpectString),
			converter.WithoutOptions()),
		converter.NewReversible("binary", "hex", binaryToHex, hexToBinary,
			converter.WithDescription("Convert binary data to/from hexadecimal encoding"),
			converter.WithValidator(ExpectBinary),
			converter.WithReverseValidator(converter.ExpectString)),
		converter.NewReversible("binary", "base32", binaryToBase32, base32ToBinary,
			converter.WithDescription("Convert binary data to/from Base32 encoding"),
			converter.WithValidator(ExpectBinary),
			converter.WithReverseValidator(converter.ExpectString),
			converter.WithoutOptions()),
		converter.NewReversible("text", "url", textToURL, urlToText,
			converter.WithDescription("Convert text to/from URL encoding (percent encoding)"),
			converter.WithValidator(converter.ExpectString),
			converter.WithReverseValidator(converter.ExpectString)),
		converter.NewReversible("text", "html", textToHTML, htmlToText,
			converter.WithDescription("Convert text to/from HTML entity encoding"),
			converter.WithValidator(converter.ExpectString),
			converter.WithReverseValidator(converter.ExpectString)),
		converter.NewReversible("text", "ascii", textToASCII, asciiToText,
			converter.WithDescription("Convert text to/from ASCII encoding"),
			converter.WithValidator(converter.ExpectString),
			converter.WithReverseValidator(converter.ExpectString)),
		converter.NewReversible("base64", "hex", base64ToHex, hexToBase64,
			converter.WithDescription("Convert Base64 to/from hexadecimal via binary"),
			converter.WithValidator(converter.ExpectString),
			converter.WithReverseValidator(converter.ExpectString)),
	}
}

// Register adds every encoding converter to reg.
func Register(reg *registry.Registry) error {
	for _, c := range Converters() {
		if err := reg.Register(c); err != nil {
			return errors.WrapInvalid(err, "encoding", "Register", c.From()+" -> "+c.To())
		}
	}
	return nil
}

func binaryToBase64(data any, _ converter.Options) (any, error) {
	b, err := Bytes(data)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func base64ToBinary(data any, _ converter.Options) (any, error) {
	b, err := DecodeBase64(data.(string))
	if err != nil {
		return nil, errors.NewConversion("failed to decode base64 to binary: "+err.Error(), "base64", "binary", err)
	}
	return b, nil
}

func binaryToBase32(data any, _ converter.Options) (any, error) {
	b, err := Bytes(data)
	if err != nil {
		return nil, err
	}
	return base32.StdEncoding.EncodeToString(b), nil
}

func base32ToBinary(data any, _ converter.Options) (any, error) {
	cleaned := strings.ToUpper(stripSpace(data.(string)))
	b, err := base32.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, errors.NewConversion("failed to decode base32 to binary: "+err.Error(), "base32", "binary", err)
	}
	return b, nil
}

func binaryToHex(data any, opts converter.Options) (any, error) {
	b, err := Bytes(data)
	if err != nil {
		return nil, err
	}
	return formatHex(b, opts), nil
}

func hexToBinary(data any, _ converter.Options) (any, error) {
	b, err := DecodeHex(data.(string))
	if err != nil {
		return nil, errors.NewConversion("invalid hex string: "+err.Error(), "hex", "binary", err)
	}
	return b, nil
}

func base64ToHex(data any, opts converter.Options) (any, error) {
	b, err := DecodeBase64(data.(string))
	if err != nil {
		return nil, errors.NewConversion("failed to convert base64 to hex: "+err.Error(), "base64", "hex", err)
	}
	return formatHex(b, opts), nil
}

func hexToBase64(data any, _ converter.Options) (any, error) {
	b, err := DecodeHex(data.(string))
	if err != nil {
		return nil, errors.NewConversion("failed to convert hex to base64: "+err.Error(), "hex", "base64", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// formatHex honours the "uppercase" and "separator" options.
func formatHex(b []byte, opts converter.Options) string {
	s := hex.EncodeToString(b)
	if opts.Bool("uppercase", false) {
		s = strings.ToUpper(s)
	}
	sep := opts.String("separator", "")
	if sep == "" || len(s) <= 2 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + len(s)/2*len(sep))
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(s[i : i+2])
	}
	return sb.String()
}

// DecodeHex strips 0x prefixes and common separators before decoding.
func DecodeHex(s string) ([]byte, error) {
	cleaned := strings.NewReplacer("0x", "", "0X", "", ":", "", "-", "", " ", "").Replace(s)
	return hex.DecodeString(cleaned)
}

// DecodeBase64 decodes standard base64, ignoring whitespace.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(stripSpace(s))
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
