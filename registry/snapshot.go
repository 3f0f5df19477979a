package registry

import (
	"maps"
	"slices"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/format"
)

type entry struct {
	conv        converter.Converter
	description string
	reversible  bool
}

// snapshot is never mutated once published.
type snapshot struct {
	pairs      map[format.Pair]entry
	graph      map[string]map[string]struct{}
	index      map[string][]converter.Converter
	registered int

	// derived in finalize
	formats     []string
	conversions []Conversion
}

func emptySnapshot() *snapshot {
	s := &snapshot{
		pairs: make(map[format.Pair]entry),
		graph: make(map[string]map[string]struct{}),
		index: make(map[string][]converter.Converter),
	}
	s.finalize()
	return s
}

// clone deep-copies the mutable maps so the copy can be modified freely.
func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		pairs:      maps.Clone(s.pairs),
		graph:      make(map[string]map[string]struct{}, len(s.graph)),
		index:      make(map[string][]converter.Converter, len(s.index)),
		registered: s.registered,
	}
	for from, targets := range s.graph {
		next.graph[from] = maps.Clone(targets)
	}
	for name, convs := range s.index {
		next.index[name] = slices.Clone(convs)
	}
	return next
}

func (s *snapshot) insert(pair format.Pair, c converter.Converter, reversible bool) {
	s.pairs[pair] = entry{
		conv:        c,
		description: c.Bind(pair.From, pair.To).Description(),
		reversible:  reversible,
	}
	if s.graph[pair.From] == nil {
		s.graph[pair.From] = make(map[string]struct{})
	}
	s.graph[pair.From][pair.To] = struct{}{}
	s.registered++
}

func (s *snapshot) finalize() {
	seen := make(map[string]struct{})
	pairs := make([]format.Pair, 0, len(s.pairs))
	for p := range s.pairs {
		pairs = append(pairs, p)
		seen[p.From] = struct{}{}
		seen[p.To] = struct{}{}
	}
	slices.SortFunc(pairs, format.Pair.Compare)

	s.formats = slices.Sorted(maps.Keys(seen))
	if s.formats == nil {
		s.formats = []string{}
	}
	s.conversions = make([]Conversion, 0, len(pairs))
	for _, p := range pairs {
		e := s.pairs[p]
		s.conversions = append(s.conversions, Conversion{
			From:        p.From,
			To:          p.To,
			Description: e.description,
			Converter:   typeName(e.conv),
			Reversible:  e.reversible,
		})
	}
}

func (s *snapshot) neighbours(name string) FormatConversions {
	fc := FormatConversions{Format: name, Incoming: []string{}, Outgoing: s.outgoing(name)}
	for from, targets := range s.graph {
		if _, ok := targets[name]; ok {
			fc.Incoming = append(fc.Incoming, from)
		}
	}
	slices.Sort(fc.Incoming)
	return fc
}

func (s *snapshot) outgoing(from string) []string {
	out := slices.Sorted(maps.Keys(s.graph[from]))
	if out == nil {
		return []string{}
	}
	return out
}
