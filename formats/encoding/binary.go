package encoding

import (
	"fmt"
	"strings"
)

// ExpectBinary accepts []byte or a string made only of 0, 1 and spaces.
func ExpectBinary(data any) error {
	switch v := data.(type) {
	case []byte:
		return nil
	case string:
		if strings.Trim(v, "01 ") != "" {
			return fmt.Errorf("binary string must contain only 0s and 1s")
		}
		return nil
	}
	return fmt.Errorf("binary input requires bytes or a binary string, got %T", data)
}

// Bytes returns raw bytes, decoding bit strings most significant bit first.
func Bytes(data any) ([]byte, error) {
	switch v := data.(type) {
	case []byte:
		return v, nil
	case string:
		return parseBits(v)
	}
	return nil, fmt.Errorf("binary input requires bytes or a binary string, got %T", data)
}

func parseBits(s string) ([]byte, error) {
	bits := strings.ReplaceAll(s, " ", "")
	if pad := len(bits) % 8; pad != 0 {
		bits = strings.Repeat("0", 8-pad) + bits
	}

	out := make([]byte, len(bits)/8)
	for i := 0; i < len(bits); i++ {
		switch bits[i] {
		case '1':
			out[i/8] |= 1 << (7 - uint(i%8))
		case '0':
		default:
			return nil, fmt.Errorf("invalid bit %q at position %d", bits[i], i)
		}
	}
	return out, nil
}
