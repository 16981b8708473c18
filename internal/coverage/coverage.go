// Package coverage measures how much scenario vocabulary a pack actually uses.
package coverage

import (
	"slices"
	"strings"

	"pack_audit/internal/content"
)

type Result struct {
	ScenarioKnown            bool     `json:"scenario_known"`
	UniqueScenarioTokensUsed int      `json:"unique_scenario_tokens_used"`
	TokensUsed               []string `json:"tokens_used"`
	PromptsWithTokens        int      `json:"prompts_with_tokens"`
	StepIDs                  []string `json:"step_ids,omitempty"`
	// PerStepScenarioTokenPresence has one entry per session step.
	PerStepScenarioTokenPresence []bool `json:"per_step_scenario_token_presence,omitempty"`
}

// MissingSteps names the session steps where no prompt used a scenario token.
func (r Result) MissingSteps() []string {
	var out []string
	for i, ok := range r.PerStepScenarioTokenPresence {
		if !ok {
			out = append(out, r.StepIDs[i])
		}
	}
	return out
}

type Analyzer struct {
	dict *Dictionary
}

func NewAnalyzer(dict *Dictionary) *Analyzer {
	if dict == nil {
		dict = NewDictionary(nil)
	}
	return &Analyzer{dict: dict}
}

func (a *Analyzer) Dictionary() *Dictionary {
	return a.dict
}

// Analyze matches every scenario token as a case-insensitive substring of the
// raw prompt text. A pack whose scenario is not in the dictionary gets zero
// coverage.
func (a *Analyzer) Analyze(pack content.Pack) Result {
	tokens, known := a.dict.Tokens(pack.Scenario)
	res := Result{ScenarioKnown: known, TokensUsed: []string{}}

	used := map[string]struct{}{}
	matched := make(map[string]bool, len(pack.Prompts))
	for _, prompt := range pack.Prompts {
		lower := strings.ToLower(prompt.Text)
		hit := false
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				used[tok] = struct{}{}
				hit = true
			}
		}
		if hit {
			res.PromptsWithTokens++
			matched[prompt.ID] = true
		}
	}
	for tok := range used {
		res.TokensUsed = append(res.TokensUsed, tok)
	}
	slices.Sort(res.TokensUsed)
	res.UniqueScenarioTokensUsed = len(res.TokensUsed)

	for _, step := range pack.Steps() {
		present := false
		for _, id := range step.PromptIDs {
			if matched[id] {
				present = true
				break
			}
		}
		res.StepIDs = append(res.StepIDs, step.ID)
		res.PerStepScenarioTokenPresence = append(res.PerStepScenarioTokenPresence, present)
	}
	return res
}
