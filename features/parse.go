package features

import (
	"regexp"
	"strconv"
)

// Parse pulls "name: value" or "name=value" pairs for schema features out of
// free text. Matching is case-insensitive; the last occurrence wins. Text that
// names no schema feature yields an empty set.
func Parse(text string, s Schema) Measurements {
	out := Measurements{}
	if text == "" {
		return out
	}
	for i, name := range s.names {
		matches := s.patterns[i].FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
		if err != nil {
			continue
		}
		out[name] = v
	}
	return out
}

func valuePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\w.])` + regexp.QuoteMeta(name) + `\s*[:=]\s*(-?\d+(?:\.\d+)?)`)
}

// Merge returns base overlaid with every value in over.
func Merge(base, over Measurements) Measurements {
	out := make(Measurements, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
