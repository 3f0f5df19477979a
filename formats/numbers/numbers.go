// Package numbers registers conversions between integer notations: decimal,
// binary, hexadecimal, octal and Roman numerals.
//
// Decimal values come out as int64; every other notation is a string.
// Options shared by the positional notations:
//
//	include_prefix  prepend 0b, 0x or 0o (default false)
//	uppercase       upper-case hex digits (default false)
//	min_width       left pad digits with zeros (default 0)
package numbers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
	"github.com/c360/formatkit/registry"
)

// base describes one positional notation.
type base struct {
	name   string
	radix  int
	prefix string
	digits string
}

var (
	binaryNum = base{name: "binary_num", radix: 2, prefix: "0b", digits: "01"}
	hexNum    = base{name: "hex_num", radix: 16, prefix: "0x", digits: "0123456789abcdefABCDEF"}
	octalNum  = base{name: "octal", radix: 8, prefix: "0o", digits: "01234567"}
)

// Converters returns the group's converters in registration order.
func Converters() []converter.Converter {
	return []converter.Converter{
		decimalTo(binaryNum, "Convert decimal to/from binary representation"),
		decimalTo(hexNum, "Convert decimal to/from hexadecimal"),
		decimalTo(octalNum, "Convert decimal to/from octal"),
		converter.NewReversible("decimal", "roman", decimalToRoman, romanToDecimal,
			converter.WithDescription("Convert decimal to/from Roman numerals"),
			converter.WithValidator(expectDecimal),
			converter.WithReverseValidator(converter.ExpectCharset("roman", "IVXLCDM", true)),
			converter.WithoutOptions()),
		converter.NewReversible(binaryNum.name, hexNum.name,
			rebase(binaryNum, hexNum), rebase(hexNum, binaryNum),
			converter.WithDescription("Convert binary to/from hexadecimal"),
			converter.WithValidator(converter.ExpectString),
			converter.WithReverseValidator(converter.ExpectString)),
	}
}

// Register adds every number converter to reg.
func Register(reg *registry.Registry) error {
	for _, c := range Converters() {
		if err := reg.Register(c); err != nil {
			return errors.WrapInvalid(err, "numbers", "Register", c.From()+" -> "+c.To())
		}
	}
	return nil
}

func decimalTo(b base, desc string) *converter.Reversible {
	return converter.NewReversible("decimal", b.name,
		func(data any, opts converter.Options) (any, error) {
			n, err := toInt64(data)
			if err != nil {
				return nil, err
			}
			return b.format(n, opts)
		},
		func(data any, _ converter.Options) (any, error) {
			return b.parse(data.(string))
		},
		converter.WithDescription(desc),
		converter.WithValidator(expectDecimal),
		converter.WithReverseValidator(converter.ExpectString))
}

// rebase converts between two positional notations through int64.
func rebase(src, dst base) converter.TransformFunc {
	return func(data any, opts converter.Options) (any, error) {
		n, err := src.parse(data.(string))
		if err != nil {
			return nil, err
		}
		return dst.format(n, opts)
	}
}

// format renders n with sign first, then prefix, then padded digits.
func (b base) format(n int64, opts converter.Options) (string, error) {
	neg := n < 0
	var digits string
	if neg {
		// math.MinInt64 has no positive int64 counterpart.
		digits = strconv.FormatUint(uint64(-(n+1))+1, b.radix)
	} else {
		digits = strconv.FormatInt(n, b.radix)
	}

	if opts.Bool("uppercase", false) {
		digits = strings.ToUpper(digits)
	}
	w, err := opts.Int("min_width", 0)
	if err != nil {
		return "", err
	}
	if w > len(digits) {
		digits = strings.Repeat("0", w-len(digits)) + digits
	}
	if opts.Bool("include_prefix", false) {
		digits = b.prefix + digits
	}
	if neg {
		digits = "-" + digits
	}
	return digits, nil
}

// parse accepts an optional sign and prefix around the digits.
func (b base) parse(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	neg := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	if len(cleaned) >= 2 && strings.EqualFold(cleaned[:2], b.prefix) {
		cleaned = cleaned[2:]
	}
	if cleaned == "" || strings.Trim(cleaned, b.digits) != "" {
		return 0, errors.Validationf(b.name, "invalid %s string: %q", b.name, s)
	}

	u, err := strconv.ParseUint(cleaned, b.radix, 64)
	if err != nil {
		return 0, errors.NewConversion(fmt.Sprintf("invalid %s string: %v", b.name, err), b.name, "", err)
	}
	if neg {
		if u > 1<<63 {
			return 0, errors.NewConversion("value out of range: "+s, b.name, "", nil)
		}
		return -int64(u - 1) - 1, nil
	}
	if u > math.MaxInt64 {
		return 0, errors.NewConversion("value out of range: "+s, b.name, "", nil)
	}
	return int64(u), nil
}
