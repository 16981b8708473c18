package gate

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pack_audit/internal/content"
	"pack_audit/internal/coverage"
)

func testDictionary() *coverage.Dictionary {
	return coverage.NewDictionary(map[string][]string{
		"work":   {"meeting", "termin", "büro", "chef", "kollege", "projekt", "email", "bericht"},
		"travel": {"zug", "bahnhof", "ticket", "hotel"},
	})
}

func newTestEngine() *Engine {
	return NewEngine(DefaultThresholds(), testDictionary())
}

// multiSlotPack tags every prompt with two changed slots so variation never
// drives the verdict.
func multiSlotPack(id, scenario string, texts ...string) content.Pack {
	p := content.Pack{ID: id, Scenario: scenario, Level: "A2", VariationSlots: []string{"subject", "verb"}}
	for i, text := range texts {
		p.Prompts = append(p.Prompts, content.Prompt{
			ID:           fmt.Sprintf("%s-%02d", id, i+1),
			Text:         text,
			SlotsChanged: []string{"subject", "verb"},
		})
	}
	return p
}

func TestScenarioAWellCoveredPackIsGreen(t *testing.T) {
	pack := multiSlotPack("work-a", "work",
		"Das Meeting beginnt um neun Uhr.",
		"Mein Termin mit dem Chef ist morgen.",
		"Im Büro ist es heute sehr ruhig.",
		"Der Kollege schreibt eine lange Email.",
		"Wir besprechen das Projekt im Meeting.",
		"Hast du einen Termin frei?",
		"Das Wetter ist schön heute.",
		"Ich arbeite gern im Büro am Fenster.",
		"Der Brief liegt auf dem Tisch im Büro.",
		"Nach dem Meeting gehen wir essen.",
	)

	report := newTestEngine().Evaluate([]content.Pack{pack})
	require.Len(t, report.Packs, 1)
	pr := report.Packs[0]

	assert.Equal(t, Green, pr.Status, "issues: %v", pr.Issues)
	assert.Empty(t, pr.Issues)
	assert.Equal(t, 10, pr.Metrics.PromptCount)
	assert.Equal(t, 7, pr.Metrics.UniqueScenarioTokensUsed)
	assert.Equal(t, 1.0, pr.Metrics.MultiSlotRate)
	assert.Zero(t, pr.Metrics.NearDuplicateRate)
}

func TestScenarioBExactAdjacentDuplicateIsRed(t *testing.T) {
	pack := multiSlotPack("dup", "work", "Ich gehe zur Arbeit.", "Ich gehe zur Arbeit.")

	pr := newTestEngine().Evaluate([]content.Pack{pack}).Packs[0]

	assert.Equal(t, Red, pr.Status)
	assert.Equal(t, 1.0, pr.Metrics.NearDuplicateRate)
	assert.Contains(t, pr.Issues, "Near-duplicate rate too high: 100.0% (threshold: 20%)")
}

func TestScenarioCUnusedVariationSlotIsRed(t *testing.T) {
	pack := content.Pack{
		ID:             "slots",
		Scenario:       "work",
		VariationSlots: []string{"subject", "verb", "object"},
		Prompts: []content.Prompt{
			{ID: "1", Text: "Ich schreibe dem Chef.", SlotsChanged: []string{"subject", "verb"}},
			{ID: "2", Text: "Du rufst den Kollegen an.", SlotsChanged: []string{"subject"}, Slots: map[string][]string{"verb": {"rufst an"}}},
		},
	}

	pr := newTestEngine().Evaluate([]content.Pack{pack}).Packs[0]

	assert.Equal(t, Red, pr.Status)
	assert.Contains(t, pr.Issues, "Variation slots declared but not used: object")
	assert.Equal(t, []string{"object"}, pr.Metrics.UnusedVariationSlots)
}

func TestScenarioDScenarioShareIsCorpusFailure(t *testing.T) {
	var packs []content.Pack
	add := func(scenario string, n int) {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("%s-%d", scenario, i)
			packs = append(packs, multiSlotPack(id, scenario, "Satz eins für "+id+".", "Ganz anders formuliert: "+id+" heute?"))
		}
	}
	add("work", 9)
	add("travel", 4)
	add("shopping", 4)
	add("health", 3)

	report := newTestEngine().Evaluate(packs)

	assert.Equal(t, Red, report.Status)
	assert.Equal(t, []string{`Scenario "work" is 45.0% of packs (max: 40%)`}, report.Issues)
	assert.Equal(t, 9, report.Distribution.ByScenario["work"])
	assert.Equal(t, 20, report.Distribution.ByLevel["A2"])
	assert.Equal(t, 20, report.Distribution.ByStructure["(none)"])
	assert.Equal(t, 20, report.Summary.Total)
}

func TestScenarioShareAppliesToSmallCorpus(t *testing.T) {
	packs := []content.Pack{
		multiSlotPack("a", "work", "Erster Satz hier.", "Zweiter völlig anderer Gedanke?"),
		multiSlotPack("b", "work", "Noch ein Beispiel.", "Und eine weitere Frage dazu?"),
		multiSlotPack("c", "work", "Das Wetter wird besser.", "Kommst du morgen mit?"),
		multiSlotPack("d", "travel", "Der Zug ist voll.", "Wo liegt das Hotel?"),
	}
	report := newTestEngine().Evaluate(packs)

	assert.Equal(t, Red, report.Status)
	assert.Equal(t, []string{`Scenario "work" is 75.0% of packs (max: 40%)`}, report.Issues)
}

func TestScenarioShareAtLimitPasses(t *testing.T) {
	packs := []content.Pack{
		multiSlotPack("a", "work", "Erster Satz hier.", "Zweiter völlig anderer Gedanke?"),
		multiSlotPack("b", "work", "Noch ein Beispiel.", "Und eine weitere Frage dazu?"),
		multiSlotPack("c", "travel", "Der Zug ist voll.", "Wo liegt das Hotel?"),
		multiSlotPack("d", "travel", "Mein Ticket ist weg.", "Am Bahnhof ist es laut."),
		multiSlotPack("e", "health", "Ich gehe zum Arzt.", "Hast du Fieber?"),
	}
	report := newTestEngine().Evaluate(packs)
	assert.Empty(t, report.Issues)
}

func TestCrossPackDuplicateFailsEveryOwner(t *testing.T) {
	packs := []content.Pack{
		multiSlotPack("pack-1", "travel", "Wo ist der Bahnhof?", "Ich brauche ein Ticket für morgen."),
		multiSlotPack("pack-2", "travel", "Das Hotel liegt am Meer.", "wo ist der bahnhof"),
		multiSlotPack("pack-3", "travel", "Der Zug hat Verspätung.", "Mein Hotel ist sehr klein."),
	}

	report := newTestEngine().Evaluate(packs)

	want := `Exact duplicate across packs: "wo ist der bahnhof" (packs: pack-1, pack-2)`
	for _, i := range []int{0, 1} {
		assert.Equal(t, Red, report.Packs[i].Status)
		assert.Contains(t, report.Packs[i].Issues, want)
	}
	assert.NotContains(t, report.Packs[2].Issues, want)
	assert.Equal(t, 1, report.CrossPackDuplicateSentences)
}

func TestSkeletonRepeatNamesSkeletonPackAndCount(t *testing.T) {
	pack := multiSlotPack("days", "",
		"Ich habe am Montag frei.",
		"Ich habe am Dienstag frei.",
		"Wir kochen heute Suppe.",
		"Ich habe am Mittwoch frei.",
		"Ich habe am Freitag frei.",
	)
	pr := newTestEngine().Evaluate([]content.Pack{pack}).Packs[0]

	assert.Equal(t, Red, pr.Status)
	assert.Contains(t, pr.Issues, `Skeleton "ich habe PREP frei" repeated 4 times in pack days (max: 3)`)
	assert.Equal(t, 4, pr.Metrics.MaxSkeletonRepeat)
}

func TestNearDuplicateYellowBand(t *testing.T) {
	// five adjacent pairs, one duplicate: 20% sits inside (10%, 20%].
	pack := multiSlotPack("band", "travel",
		"Heute fährt der Zug spät.",
		"Heute fährt der Zug spät!",
		"Wo ist der Bahnhof?",
		"Ich kaufe ein Ticket.",
		"Das Hotel ist klein.",
		"Die Katze schläft auf dem Sofa.",
	)
	pr := newTestEngine().Evaluate([]content.Pack{pack}).Packs[0]

	assert.Equal(t, Yellow, pr.Status)
	assert.Equal(t, []string{"Near-duplicate rate elevated: 20.0% (threshold: 10%)"}, pr.Issues)
}

func TestGateNeverDowngradesOnceRed(t *testing.T) {
	texts := []string{"Ich gehe zur Arbeit.", "Ich gehe zur Arbeit.", "Wir essen Pizza."}
	engine := newTestEngine()

	before := engine.Evaluate([]content.Pack{multiSlotPack("m", "", texts...)}).Packs[0]
	require.Equal(t, Red, before.Status)

	after := engine.Evaluate([]content.Pack{multiSlotPack("m", "", append(texts, "Wir essen Pizza.")...)}).Packs[0]
	assert.Equal(t, Red, after.Status)
	assert.Greater(t, after.Metrics.NearDuplicateCount, before.Metrics.NearDuplicateCount)
}

func TestRedVerdictOmitsSoftIssues(t *testing.T) {
	pack := content.Pack{
		ID:             "mixed",
		Scenario:       "travel",
		VariationSlots: []string{"object"},
		Prompts: []content.Prompt{
			{ID: "1", Text: "Ich gehe.", SlotsChanged: []string{"subject"}},
			{ID: "2", Text: "Du gehst.", SlotsChanged: []string{"subject"}},
		},
	}
	pr := newTestEngine().Evaluate([]content.Pack{pack}).Packs[0]

	assert.Equal(t, Red, pr.Status)
	assert.Equal(t, []string{"Variation slots declared but not used: object"}, pr.Issues)
}

func TestCoverageRules(t *testing.T) {
	texts := []string{
		"Der Zug fährt gleich ab.",
		"Mein Hund bellt laut.",
		"Wir malen ein Bild.",
		"Sie liest die Zeitung.",
		"Er trinkt einen Kaffee.",
		"Das Kind lacht fröhlich.",
		"Die Sonne scheint warm.",
		"Ihr spielt draußen Fußball.",
	}

	t.Run("hard when large pack lacks tokens", func(t *testing.T) {
		pr := newTestEngine().Evaluate([]content.Pack{multiSlotPack("big", "travel", texts...)}).Packs[0]
		assert.Equal(t, Red, pr.Status)
		assert.Contains(t, pr.Issues, "Scenario token coverage too low: 1 unique tokens in 8 prompts (threshold: 6)")
	})

	t.Run("soft for small packs", func(t *testing.T) {
		pr := newTestEngine().Evaluate([]content.Pack{multiSlotPack("small", "travel", texts[:4]...)}).Packs[0]
		assert.Equal(t, Yellow, pr.Status)
		assert.Equal(t, []string{"Scenario token coverage weak: 1 unique tokens (threshold: 4)"}, pr.Issues)
	})

	t.Run("unknown scenario has zero coverage", func(t *testing.T) {
		pack := multiSlotPack("free", "cooking", texts...)
		pack.SessionPlan = &content.SessionPlan{Steps: []content.SessionStep{
			{ID: "all", PromptIDs: []string{"free-01", "free-02"}},
		}}
		pr := newTestEngine().Evaluate([]content.Pack{pack}).Packs[0]

		assert.Equal(t, Red, pr.Status)
		assert.False(t, pr.Metrics.ScenarioKnown)
		assert.Zero(t, pr.Metrics.UniqueScenarioTokensUsed)
		assert.Contains(t, pr.Issues, `Session step "all" has no scenario tokens`)
		assert.Contains(t, pr.Issues, "Scenario token coverage too low: 0 unique tokens in 8 prompts (threshold: 6)")
	})

	t.Run("small pack without scenario is weak", func(t *testing.T) {
		pr := newTestEngine().Evaluate([]content.Pack{multiSlotPack("bare", "", texts[1:4]...)}).Packs[0]
		assert.Equal(t, Yellow, pr.Status)
		assert.Equal(t, []string{"Scenario token coverage weak: 0 unique tokens (threshold: 4)"}, pr.Issues)
	})

	t.Run("session step without tokens", func(t *testing.T) {
		pack := multiSlotPack("plan", "travel", texts[:4]...)
		pack.SessionPlan = &content.SessionPlan{Steps: []content.SessionStep{
			{ID: "intro", PromptIDs: []string{"plan-01"}},
			{ID: "drill", PromptIDs: []string{"plan-02", "plan-03"}},
		}}
		pr := newTestEngine().Evaluate([]content.Pack{pack}).Packs[0]
		assert.Equal(t, Red, pr.Status)
		assert.Contains(t, pr.Issues, `Session step "drill" has no scenario tokens`)
		assert.Equal(t, []bool{true, false}, pr.Metrics.PerStepScenarioTokenPresence)
	})
}

func TestLowMultiSlotRateIsYellow(t *testing.T) {
	pack := content.Pack{
		ID: "flat",
		Prompts: []content.Prompt{
			{ID: "1", Text: "Ich trinke Kaffee.", SlotsChanged: []string{"object"}},
			{ID: "2", Text: "Ich trinke Tee.", SlotsChanged: []string{"object"}},
			{ID: "3", Text: "Ich trinke Wasser.", SlotsChanged: []string{"object"}},
		},
	}
	pr := newTestEngine().Evaluate([]content.Pack{pack}).Packs[0]
	assert.Equal(t, Yellow, pr.Status)
	assert.Equal(t, []string{
		"Scenario token coverage weak: 0 unique tokens (threshold: 4)",
		"Multi-slot variation too low: 0.0% (threshold: 30%)",
	}, pr.Issues)
}

func TestEmptyPackHasZeroRates(t *testing.T) {
	pr := newTestEngine().Evaluate([]content.Pack{{ID: "empty", Scenario: "work"}}).Packs[0]

	assert.Equal(t, Red, pr.Status)
	assert.Contains(t, pr.Issues, "Pack has no prompts")
	for _, v := range []float64{pr.Metrics.NearDuplicateRate, pr.Metrics.MultiSlotRate} {
		assert.False(t, math.IsNaN(v))
		assert.Zero(t, v)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	packs := []content.Pack{
		multiSlotPack("p1", "work", "Das Meeting ist kurz.", "Das Meeting ist kurz."),
		multiSlotPack("p2", "travel", "Wo ist der Bahnhof?", "Das Meeting ist kurz."),
		{ID: "p3", Scenario: "work", Prompts: []content.Prompt{{ID: "x", Text: "Büro"}, {ID: "y", Text: "Termin am Montag"}}},
	}
	engine := newTestEngine()

	first := engine.Evaluate(packs)
	second := engine.Evaluate(packs)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("reports differ (-first +second):\n%s", diff)
	}

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.True(t, strings.Contains(string(a), `"status":"RED"`))
}

func TestSummaryCounts(t *testing.T) {
	packs := []content.Pack{
		multiSlotPack("g", "travel", "Der Zug und das Hotel.", "Wo ist der Bahnhof mit dem Ticket?"),
		multiSlotPack("r", "", "Gleich.", "Gleich."),
	}
	report := newTestEngine().Evaluate(packs)

	assert.Equal(t, Summary{Total: 2, Red: 1, Green: 1}, report.Summary)
	assert.Equal(t, Red, report.Status)
	assert.Equal(t, []string{"r"}, report.Blocking(Red))
	assert.Equal(t, []string{"r"}, report.Blocking(Yellow))
}

func TestDecide(t *testing.T) {
	called := false
	v := Decide([]string{"hard"}, func() []string { called = true; return []string{"soft"} })
	assert.Equal(t, Verdict{Status: Red, Issues: []string{"hard"}}, v)
	assert.False(t, called)

	v = Decide(nil, func() []string { return []string{"soft"} })
	assert.Equal(t, Yellow, v.Status)

	v = Decide(nil, func() []string { return nil })
	assert.Equal(t, Green, v.Status)
	assert.NotNil(t, v.Issues)
}

func TestSeverityText(t *testing.T) {
	for _, s := range []Severity{Green, Yellow, Red} {
		raw, err := s.MarshalText()
		require.NoError(t, err)
		var back Severity
		require.NoError(t, back.UnmarshalText(raw))
		assert.Equal(t, s, back)
	}
	_, err := ParseSeverity("purple")
	assert.Error(t, err)
	assert.Equal(t, Red, Worst(Yellow, Red))
	assert.Equal(t, Yellow, Worst(Yellow, Green))
}
