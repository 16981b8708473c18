package gate

// Thresholds is the fixed gate table. Rates are fractions in [0,1].
type Thresholds struct {
	NearDuplicateSimilarity float64 `yaml:"near_duplicate_similarity" json:"near_duplicate_similarity"`
	NearDuplicateRateRed    float64 `yaml:"near_duplicate_rate_red" json:"near_duplicate_rate_red"`
	NearDuplicateRateYellow float64 `yaml:"near_duplicate_rate_yellow" json:"near_duplicate_rate_yellow"`

	MaxSkeletonRepeats int `yaml:"max_skeleton_repeats" json:"max_skeleton_repeats"`

	CoverageMinPrompts    int `yaml:"coverage_min_prompts" json:"coverage_min_prompts"`
	CoverageMinTokensHard int `yaml:"coverage_min_tokens_hard" json:"coverage_min_tokens_hard"`
	CoverageMinTokensSoft int `yaml:"coverage_min_tokens_soft" json:"coverage_min_tokens_soft"`

	MultiSlotFallbackSimilarity float64 `yaml:"multi_slot_fallback_similarity" json:"multi_slot_fallback_similarity"`
	MinMultiSlotRate            float64 `yaml:"min_multi_slot_rate" json:"min_multi_slot_rate"`

	MaxScenarioShare float64 `yaml:"max_scenario_share" json:"max_scenario_share"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		NearDuplicateSimilarity:     0.92,
		NearDuplicateRateRed:        0.20,
		NearDuplicateRateYellow:     0.10,
		MaxSkeletonRepeats:          3,
		CoverageMinPrompts:          8,
		CoverageMinTokensHard:       6,
		CoverageMinTokensSoft:       4,
		MultiSlotFallbackSimilarity: 0.7,
		MinMultiSlotRate:            0.30,
		MaxScenarioShare:            0.40,
	}
}
