package coverage

import (
	"slices"
	"strings"
)

// Dictionary maps a scenario name to the cue words expected in its sentences.
// It is built once and never mutated afterwards.
type Dictionary struct {
	tokens map[string][]string
}

func NewDictionary(entries map[string][]string) *Dictionary {
	d := &Dictionary{tokens: make(map[string][]string, len(entries))}
	for scenario, words := range entries {
		key := ScenarioKey(scenario)
		if key == "" {
			continue
		}
		set := slices.Clone(d.tokens[key])
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				set = append(set, w)
			}
		}
		slices.Sort(set)
		d.tokens[key] = slices.Compact(set)
	}
	return d
}

// Tokens returns the cue words for scenario and whether the scenario is known.
func (d *Dictionary) Tokens(scenario string) ([]string, bool) {
	if d == nil {
		return nil, false
	}
	words, ok := d.tokens[ScenarioKey(scenario)]
	return words, ok
}

func (d *Dictionary) Scenarios() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.tokens))
	for k := range d.tokens {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.tokens)
}

// ScenarioKey is the lookup form of a scenario name.
func ScenarioKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
