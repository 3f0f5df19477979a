// Package format defines format names and conversion pairs.
//
// A format name is a case-insensitive, whitespace-trimmed identifier such as
// "binary", "base64" or "png". Every comparison in formatkit goes through
// Normalize, so " BINARY " and "binary" name the same format.
package format

import (
	"fmt"
	"strings"
)

// Normalize returns the canonical form of a format name: trimmed and lower-cased.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Equal reports whether two format names refer to the same format.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Pair is an ordered (from, to) conversion pair. Pairs built with NewPair
// always hold normalized names and are safe to use as map keys.
type Pair struct {
	From string
	To   string
}

// NewPair builds a normalized pair
func NewPair(from, to string) Pair {
	return Pair{From: Normalize(from), To: Normalize(to)}
}

// Reverse returns the (to, from) pair
func (p Pair) Reverse() Pair {
	return Pair{From: p.To, To: p.From}
}

// Valid reports whether both sides are non-empty.
func (p Pair) Valid() bool {
	return p.From != "" && p.To != ""
}

// Less orders pairs lexicographically by (From, To).
func (p Pair) Less(other Pair) bool {
	if p.From != other.From {
		return p.From < other.From
	}
	return p.To < other.To
}

// Compare returns -1, 0 or +1 following Less. Suitable for slices.SortFunc.
func (p Pair) Compare(other Pair) int {
	switch {
	case p.Less(other):
		return -1
	case other.Less(p):
		return 1
	default:
		return 0
	}
}

// String renders the pair as "from -> to".
func (p Pair) String() string {
	return fmt.Sprintf("%s -> %s", p.From, p.To)
}
