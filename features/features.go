// Package features turns a loosely keyed set of patient measurements into the
// fixed-order numeric vector a trained classifier expects.
package features

import (
	"regexp"
	"sort"
)

// DefaultFill is substituted for every schema feature the caller did not
// measure.
const DefaultFill = 0.0

// LegacyToolFill is the substitute value some older deployments used for the
// predictor tool. It is only applied when configured explicitly.
const LegacyToolFill = 2.0

// Measurements maps feature names to measured values. It may omit schema
// names and may carry names the schema does not know.
type Measurements map[string]float64

// Vector is an assembled feature vector, one value per schema name.
type Vector []float64

// Schema is the ordered list of feature names a model was trained on. The
// zero value is an empty schema.
type Schema struct {
	names []string
	index map[string]int
	// patterns[i] finds a value for names[i] in free text
	patterns []*regexp.Regexp
}

// NewSchema builds a schema from names in order. A repeated name keeps its
// first position.
func NewSchema(names ...string) Schema {
	s := Schema{
		names:    make([]string, 0, len(names)),
		index:    make(map[string]int, len(names)),
		patterns: make([]*regexp.Regexp, 0, len(names)),
	}
	for _, n := range names {
		if _, dup := s.index[n]; dup {
			continue
		}
		s.index[n] = len(s.names)
		s.names = append(s.names, n)
		s.patterns = append(s.patterns, valuePattern(n))
	}
	return s
}

// Names returns a copy of the ordered feature names.
func (s Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len is the vector length the schema produces.
func (s Schema) Len() int { return len(s.names) }

// Index reports the position of name in the schema.
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Assemble lays m out in schema order. Missing names get fill; names the
// schema does not list are dropped. It never fails.
func Assemble(m Measurements, s Schema, fill float64) Vector {
	v := make(Vector, len(s.names))
	for i, name := range s.names {
		if val, ok := m[name]; ok {
			v[i] = val
			continue
		}
		v[i] = fill
	}
	return v
}

// Missing returns the schema names absent from m, in schema order.
func Missing(m Measurements, s Schema) []string {
	var out []string
	for _, name := range s.names {
		if _, ok := m[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Dropped returns the sorted names in m that Assemble would discard.
func Dropped(m Measurements, s Schema) []string {
	var out []string
	for name := range m {
		if _, ok := s.index[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
