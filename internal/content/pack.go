package content

type Prompt struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	// SlotsChanged is nil when the author did not tag the prompt.
	SlotsChanged []string            `json:"slotsChanged,omitempty"`
	Slots        map[string][]string `json:"slots,omitempty"`
}

func (p Prompt) HasSlotsChanged() bool {
	return p.SlotsChanged != nil
}

type SessionStep struct {
	ID        string   `json:"id"`
	PromptIDs []string `json:"promptIds"`
}

type SessionPlan struct {
	Steps []SessionStep `json:"steps"`
}

type Pack struct {
	ID               string       `json:"id"`
	Scenario         string       `json:"scenario"`
	Level            string       `json:"level"`
	PrimaryStructure string       `json:"primaryStructure,omitempty"`
	VariationSlots   []string     `json:"variationSlots,omitempty"`
	Prompts          []Prompt     `json:"prompts"`
	SessionPlan      *SessionPlan `json:"sessionPlan,omitempty"`

	SourcePath string `json:"-"`
}

func (p Pack) PromptCount() int {
	return len(p.Prompts)
}

// Steps returns the declared session steps, or nil when the pack has no plan.
func (p Pack) Steps() []SessionStep {
	if p.SessionPlan == nil {
		return nil
	}
	return p.SessionPlan.Steps
}
