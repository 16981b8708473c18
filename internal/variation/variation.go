// Package variation measures whether prompts change more than one slot at a time.
package variation

import (
	"maps"
	"slices"

	"pack_audit/internal/content"
	"pack_audit/internal/similarity"
)

type Result struct {
	MultiSlotCount int      `json:"multi_slot_count"`
	MultiSlotRate  float64  `json:"multi_slot_rate"`
	TaggedPrompts  int      `json:"tagged_prompts"`
	InferredMulti  int      `json:"inferred_multi"`
	SlotsUsed      []string `json:"slots_used"`
	UnusedSlots    []string `json:"unused_slots,omitempty"`
}

// Analyze counts multi-slot prompts. An explicit slotsChanged list is the
// ground truth. Untagged prompts fall back to lexical distance from the
// previous prompt: similarity below fallbackThreshold counts as a multi-slot
// change. That is a proxy only; a one-word edit in a long sentence can also
// fall below the threshold through the edit-distance term.
func Analyze(pack content.Pack, fallbackThreshold float64) Result {
	res := Result{}
	for i, prompt := range pack.Prompts {
		if prompt.HasSlotsChanged() {
			res.TaggedPrompts++
			if len(prompt.SlotsChanged) >= 2 {
				res.MultiSlotCount++
			}
			continue
		}
		if i == 0 {
			continue
		}
		if similarity.Score(pack.Prompts[i-1].Text, prompt.Text) < fallbackThreshold {
			res.MultiSlotCount++
			res.InferredMulti++
		}
	}
	if n := len(pack.Prompts); n > 0 {
		res.MultiSlotRate = float64(res.MultiSlotCount) / float64(n)
	}

	used := usedSlots(pack.Prompts)
	res.SlotsUsed = used.ordered
	for _, slot := range pack.VariationSlots {
		if _, ok := used.set[slot]; !ok {
			res.UnusedSlots = append(res.UnusedSlots, slot)
		}
	}
	return res
}

type slotSet struct {
	set     map[string]struct{}
	ordered []string
}

func (s *slotSet) add(name string) {
	if _, ok := s.set[name]; ok {
		return
	}
	s.set[name] = struct{}{}
	s.ordered = append(s.ordered, name)
}

// usedSlots unions slotsChanged entries and slots keys across prompts.
func usedSlots(prompts []content.Prompt) *slotSet {
	s := &slotSet{set: map[string]struct{}{}, ordered: []string{}}
	for _, p := range prompts {
		for _, name := range p.SlotsChanged {
			s.add(name)
		}
		for _, name := range slices.Sorted(maps.Keys(p.Slots)) {
			s.add(name)
		}
	}
	return s
}
