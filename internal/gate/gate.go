// Package gate turns per-pack quality metrics into a RED/YELLOW/GREEN verdict.
//
// Hard failures (RED) block publication; soft failures (YELLOW) are advisory.
// Whether a RED pack actually blocks a release is decided by the caller.
package gate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"pack_audit/internal/content"
	"pack_audit/internal/coverage"
	"pack_audit/internal/dedup"
	"pack_audit/internal/variation"
)

type PackMetrics struct {
	PromptCount int `json:"prompt_count"`

	NearDuplicateCount int                       `json:"near_duplicate_count"`
	NearDuplicateRate  float64                   `json:"near_duplicate_rate"`
	NearDuplicatePairs []dedup.NearDuplicatePair `json:"near_duplicate_pairs,omitempty"`

	CrossPackDuplicates []dedup.SharedSentence `json:"cross_pack_duplicates,omitempty"`

	MaxSkeletonRepeat int                    `json:"max_skeleton_repeat"`
	SkeletonRepeats   []dedup.SkeletonRepeat `json:"skeleton_repeats,omitempty"`

	ScenarioKnown                bool     `json:"scenario_known"`
	UniqueScenarioTokensUsed     int      `json:"unique_scenario_tokens_used"`
	ScenarioTokensUsed           []string `json:"scenario_tokens_used"`
	PerStepScenarioTokenPresence []bool   `json:"per_step_scenario_token_presence,omitempty"`

	MultiSlotCount       int      `json:"multi_slot_count"`
	MultiSlotRate        float64  `json:"multi_slot_rate"`
	UnusedVariationSlots []string `json:"unused_variation_slots,omitempty"`
}

type PackReport struct {
	PackID    string      `json:"pack_id"`
	Scenario  string      `json:"scenario"`
	Level     string      `json:"level"`
	Structure string      `json:"structure,omitempty"`
	Status    Severity    `json:"status"`
	Issues    []string    `json:"issues"`
	Metrics   PackMetrics `json:"metrics"`
}

type Engine struct {
	thresholds Thresholds
	coverage   *coverage.Analyzer
}

func NewEngine(th Thresholds, dict *coverage.Dictionary) *Engine {
	return &Engine{thresholds: th, coverage: coverage.NewAnalyzer(dict)}
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// EvaluatePack measures one pack and gates it. idx must already hold every
// pack of the corpus; a nil index disables the cross-pack check.
func (e *Engine) EvaluatePack(pack content.Pack, idx *dedup.Index) PackReport {
	th := e.thresholds

	near := dedup.Adjacent(pack, th.NearDuplicateSimilarity)
	repeats, highest := dedup.Skeletons(pack, th.MaxSkeletonRepeats)
	cov := e.coverage.Analyze(pack)
	vari := variation.Analyze(pack, th.MultiSlotFallbackSimilarity)
	var shared []dedup.SharedSentence
	if idx != nil {
		shared = idx.Shared(pack.ID)
	}

	m := PackMetrics{
		PromptCount:                  pack.PromptCount(),
		NearDuplicateCount:           near.Count(),
		NearDuplicateRate:            near.Rate(),
		NearDuplicatePairs:           near.Pairs,
		CrossPackDuplicates:          shared,
		MaxSkeletonRepeat:            highest,
		SkeletonRepeats:              repeats,
		ScenarioKnown:                cov.ScenarioKnown,
		UniqueScenarioTokensUsed:     cov.UniqueScenarioTokensUsed,
		ScenarioTokensUsed:           cov.TokensUsed,
		PerStepScenarioTokenPresence: cov.PerStepScenarioTokenPresence,
		MultiSlotCount:               vari.MultiSlotCount,
		MultiSlotRate:                vari.MultiSlotRate,
		UnusedVariationSlots:         vari.UnusedSlots,
	}

	verdict := Decide(
		e.hardIssues(pack, m, cov),
		func() []string { return e.softIssues(m) },
	)

	return PackReport{
		PackID:    pack.ID,
		Scenario:  pack.Scenario,
		Level:     pack.Level,
		Structure: pack.PrimaryStructure,
		Status:    verdict.Status,
		Issues:    verdict.Issues,
		Metrics:   m,
	}
}

func (e *Engine) hardIssues(pack content.Pack, m PackMetrics, cov coverage.Result) []string {
	th := e.thresholds
	var issues []string

	if m.PromptCount == 0 {
		issues = append(issues, "Pack has no prompts")
	}
	if m.NearDuplicateRate > th.NearDuplicateRateRed {
		issues = append(issues, fmt.Sprintf("Near-duplicate rate too high: %.1f%% (threshold: %s%%)",
			m.NearDuplicateRate*100, percent(th.NearDuplicateRateRed)))
	}
	for _, s := range m.CrossPackDuplicates {
		issues = append(issues, fmt.Sprintf("Exact duplicate across packs: %q (packs: %s)",
			s.Text, strings.Join(s.PackIDs, ", ")))
	}
	for _, r := range m.SkeletonRepeats {
		issues = append(issues, fmt.Sprintf("Skeleton %q repeated %d times in pack %s (max: %d)",
			r.Skeleton, r.Count, pack.ID, th.MaxSkeletonRepeats))
	}
	// An unknown scenario has zero tokens and is gated like any other pack.
	for _, step := range cov.MissingSteps() {
		issues = append(issues, fmt.Sprintf("Session step %q has no scenario tokens", step))
	}
	if m.PromptCount >= th.CoverageMinPrompts && m.UniqueScenarioTokensUsed < th.CoverageMinTokensHard {
		issues = append(issues, fmt.Sprintf("Scenario token coverage too low: %d unique tokens in %d prompts (threshold: %d)",
			m.UniqueScenarioTokensUsed, m.PromptCount, th.CoverageMinTokensHard))
	}
	if len(m.UnusedVariationSlots) > 0 {
		issues = append(issues, "Variation slots declared but not used: "+strings.Join(m.UnusedVariationSlots, ", "))
	}
	return issues
}

func (e *Engine) softIssues(m PackMetrics) []string {
	th := e.thresholds
	var issues []string

	if m.NearDuplicateRate > th.NearDuplicateRateYellow {
		issues = append(issues, fmt.Sprintf("Near-duplicate rate elevated: %.1f%% (threshold: %s%%)",
			m.NearDuplicateRate*100, percent(th.NearDuplicateRateYellow)))
	}
	if m.UniqueScenarioTokensUsed < th.CoverageMinTokensSoft {
		issues = append(issues, fmt.Sprintf("Scenario token coverage weak: %d unique tokens (threshold: %d)",
			m.UniqueScenarioTokensUsed, th.CoverageMinTokensSoft))
	}
	if m.MultiSlotRate < th.MinMultiSlotRate {
		issues = append(issues, fmt.Sprintf("Multi-slot variation too low: %.1f%% (threshold: %s%%)",
			m.MultiSlotRate*100, percent(th.MinMultiSlotRate)))
	}
	return issues
}

// percent renders a threshold fraction as a short percentage, 0.2 -> "20".
func percent(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/10, 'f', -1, 64)
}
