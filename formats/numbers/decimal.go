package numbers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

func expectDecimal(data any) error {
	_, err := toInt64(data)
	return err
}

// toInt64 accepts Go integer types, integral floats (JSON numbers) and
// base-10 strings.
func toInt64(data any) (int64, error) {
	switch v := data.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, fmt.Errorf("invalid decimal number: %v", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid decimal number: %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("decimal input requires int or string, got %T", data)
}

func uintToInt64(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("decimal number out of range: %d", u)
	}
	return int64(u), nil
}

var roman = []struct {
	value  int64
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

var romanValues = map[rune]int64{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

func decimalToRoman(data any, _ converter.Options) (any, error) {
	n, err := toInt64(data)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > 3999 {
		return nil, errors.Validationf("decimal", "Roman numerals only support numbers 1-3999, got %d", n)
	}

	var sb strings.Builder
	for _, r := range roman {
		for n >= r.value {
			sb.WriteString(r.symbol)
			n -= r.value
		}
	}
	return sb.String(), nil
}

// romanToDecimal reads right to left, subtracting a symbol smaller than its
// right neighbour.
func romanToDecimal(data any, _ converter.Options) (any, error) {
	s := strings.ToUpper(strings.TrimSpace(data.(string)))
	if s == "" {
		return nil, errors.NewValidation("empty Roman numeral", "roman")
	}

	var total, prev int64
	runes := []rune(s)
	for i := len(runes) - 1; i >= 0; i-- {
		v := romanValues[runes[i]]
		if v < prev {
			total -= v
		} else {
			total += v
		}
		prev = v
	}
	return total, nil
}
