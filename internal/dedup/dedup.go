// Package dedup finds repeated sentences inside a pack and across a corpus.
package dedup

import (
	"slices"

	"pack_audit/internal/content"
	"pack_audit/internal/similarity"
	"pack_audit/internal/textnorm"
)

type NearDuplicatePair struct {
	PromptA string  `json:"prompt_a"`
	PromptB string  `json:"prompt_b"`
	Score   float64 `json:"score"`
}

type NearDuplicates struct {
	Pairs []NearDuplicatePair
	// Compared is the number of adjacent pairs looked at (promptCount-1).
	Compared int
}

func (n NearDuplicates) Count() int {
	return len(n.Pairs)
}

func (n NearDuplicates) Rate() float64 {
	if n.Compared == 0 {
		return 0
	}
	return float64(len(n.Pairs)) / float64(n.Compared)
}

// Adjacent compares each prompt with the one right after it. Prompts further
// apart are never compared, so a repeat separated by another prompt slips
// through; the threshold table is calibrated for this adjacent-only scope.
func Adjacent(pack content.Pack, threshold float64) NearDuplicates {
	out := NearDuplicates{}
	if len(pack.Prompts) < 2 {
		return out
	}
	out.Compared = len(pack.Prompts) - 1
	for i := 0; i+1 < len(pack.Prompts); i++ {
		a, b := pack.Prompts[i], pack.Prompts[i+1]
		score := similarity.Score(a.Text, b.Text)
		if score >= threshold {
			out.Pairs = append(out.Pairs, NearDuplicatePair{PromptA: a.ID, PromptB: b.ID, Score: score})
		}
	}
	return out
}

type SharedSentence struct {
	Text    string   `json:"text"`
	PackIDs []string `json:"pack_ids"`
}

// Index maps every normalized sentence in a corpus to the packs that use it.
type Index struct {
	owners map[string][]string
	// order keeps first-seen order per pack so reports are stable.
	order map[string][]string
}

// BuildIndex makes one forward pass over every prompt of every pack.
func BuildIndex(packs []content.Pack) *Index {
	idx := &Index{
		owners: map[string][]string{},
		order:  map[string][]string{},
	}
	for _, pack := range packs {
		for _, prompt := range pack.Prompts {
			key := textnorm.Normalize(prompt.Text)
			if key == "" {
				continue
			}
			owners := idx.owners[key]
			if slices.Contains(owners, pack.ID) {
				continue
			}
			idx.owners[key] = append(owners, pack.ID)
			idx.order[pack.ID] = append(idx.order[pack.ID], key)
		}
	}
	return idx
}

// Shared lists the sentences of packID that some other pack also uses.
// PackIDs is sorted and includes packID itself.
func (idx *Index) Shared(packID string) []SharedSentence {
	var out []SharedSentence
	for _, key := range idx.order[packID] {
		owners := idx.owners[key]
		if len(owners) < 2 {
			continue
		}
		ids := slices.Clone(owners)
		slices.Sort(ids)
		out = append(out, SharedSentence{Text: key, PackIDs: ids})
	}
	return out
}

// SharedCount is the number of distinct sentences owned by more than one pack.
func (idx *Index) SharedCount() int {
	n := 0
	for _, owners := range idx.owners {
		if len(owners) > 1 {
			n++
		}
	}
	return n
}

type SkeletonRepeat struct {
	Skeleton string `json:"skeleton"`
	Count    int    `json:"count"`
}

// Skeletons returns the skeletons used more than maxRepeats times in the pack,
// in order of first appearance, together with the highest count seen. Prompts
// with empty normalized text have no skeleton.
func Skeletons(pack content.Pack, maxRepeats int) ([]SkeletonRepeat, int) {
	counts := map[string]int{}
	var order []string
	for _, prompt := range pack.Prompts {
		normalized := textnorm.Normalize(prompt.Text)
		if normalized == "" {
			continue
		}
		sk := textnorm.Skeleton(normalized)
		if _, seen := counts[sk]; !seen {
			order = append(order, sk)
		}
		counts[sk]++
	}

	highest := 0
	var out []SkeletonRepeat
	for _, sk := range order {
		c := counts[sk]
		highest = max(highest, c)
		if c > maxRepeats {
			out = append(out, SkeletonRepeat{Skeleton: sk, Count: c})
		}
	}
	return out, highest
}
