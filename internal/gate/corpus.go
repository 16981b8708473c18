package gate

import (
	"fmt"
	"slices"

	"pack_audit/internal/content"
	"pack_audit/internal/dedup"
)

const unspecified = "(none)"

type Summary struct {
	Total  int `json:"total"`
	Red    int `json:"red"`
	Yellow int `json:"yellow"`
	Green  int `json:"green"`
}

type Distribution struct {
	ByScenario  map[string]int `json:"by_scenario"`
	ByLevel     map[string]int `json:"by_level"`
	ByStructure map[string]int `json:"by_structure"`
}

type CorpusReport struct {
	Status                      Severity     `json:"status"`
	Issues                      []string     `json:"issues"`
	Summary                     Summary      `json:"summary"`
	Distribution                Distribution `json:"distribution"`
	CrossPackDuplicateSentences int          `json:"cross_pack_duplicate_sentences"`
	Packs                       []PackReport `json:"packs"`
}

// Evaluate gates every pack of a corpus. The cross-pack index is complete
// before the first pack verdict is produced, so every owner of a shared
// sentence sees the violation regardless of input order.
func (e *Engine) Evaluate(packs []content.Pack) CorpusReport {
	idx := dedup.BuildIndex(packs)

	report := CorpusReport{
		Status: Green,
		Issues: []string{},
		Distribution: Distribution{
			ByScenario:  map[string]int{},
			ByLevel:     map[string]int{},
			ByStructure: map[string]int{},
		},
		CrossPackDuplicateSentences: idx.SharedCount(),
		Packs:                       make([]PackReport, 0, len(packs)),
	}

	for _, pack := range packs {
		pr := e.EvaluatePack(pack, idx)
		report.Packs = append(report.Packs, pr)
		report.Status = Worst(report.Status, pr.Status)

		report.Summary.Total++
		switch pr.Status {
		case Red:
			report.Summary.Red++
		case Yellow:
			report.Summary.Yellow++
		default:
			report.Summary.Green++
		}

		report.Distribution.ByScenario[labelOf(pack.Scenario)]++
		report.Distribution.ByLevel[labelOf(pack.Level)]++
		report.Distribution.ByStructure[labelOf(pack.PrimaryStructure)]++
	}

	if issues := e.distributionIssues(report.Distribution, report.Summary.Total); len(issues) > 0 {
		report.Issues = issues
		report.Status = Red
	}
	return report
}

func (e *Engine) distributionIssues(d Distribution, total int) []string {
	th := e.thresholds
	if total == 0 || th.MaxScenarioShare <= 0 {
		return nil
	}
	names := make([]string, 0, len(d.ByScenario))
	for name := range d.ByScenario {
		if name != unspecified {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var issues []string
	for _, name := range names {
		share := float64(d.ByScenario[name]) / float64(total)
		if share > th.MaxScenarioShare {
			issues = append(issues, fmt.Sprintf("Scenario %q is %.1f%% of packs (max: %s%%)",
				name, share*100, percent(th.MaxScenarioShare)))
		}
	}
	return issues
}

func labelOf(s string) string {
	if s == "" {
		return unspecified
	}
	return s
}

// Blocking returns the IDs of packs at or above the given severity.
func (r CorpusReport) Blocking(at Severity) []string {
	var ids []string
	for _, p := range r.Packs {
		if p.Status >= at {
			ids = append(ids, p.PackID)
		}
	}
	return ids
}
