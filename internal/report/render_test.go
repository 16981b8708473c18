package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"pack_audit/internal/gate"
)

func sampleReport() gate.CorpusReport {
	return gate.CorpusReport{
		Status:  gate.Red,
		Issues:  []string{`Scenario "work" is 45.0% of packs (max: 40%)`},
		Summary: gate.Summary{Total: 2, Red: 1, Green: 1},
		Distribution: gate.Distribution{
			ByScenario:  map[string]int{"work": 1, "travel": 1},
			ByLevel:     map[string]int{"A1": 2},
			ByStructure: map[string]int{},
		},
		Packs: []gate.PackReport{
			{PackID: "w1", Scenario: "work", Level: "A1", Status: gate.Red, Issues: []string{"Near-duplicate rate too high: 100.0% (threshold: 20%)"},
				Metrics: gate.PackMetrics{PromptCount: 2, NearDuplicateRate: 1}},
			{PackID: "t1", Scenario: "travel", Level: "A1", Status: gate.Green, Issues: []string{}},
		},
	}
}

func TestTextIncludesIssues(t *testing.T) {
	out := Text(sampleReport())
	for _, want := range []string{"Corpus: RED", "[RED   ] w1", "Near-duplicate rate too high: 100.0%", "Scenario \"work\""} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestMarkdownSections(t *testing.T) {
	out := Markdown(sampleReport())
	for _, want := range []string{"# Pack Quality Report", "## Corpus Issues", "**By Scenario:** travel=1, work=1", "**By Structure:** _none_", "### w1 (RED)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in markdown:\n%s", want, out)
		}
	}
	if strings.Contains(out, "### t1") {
		t.Fatalf("green pack without issues should not get a section")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatalf("write json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["status"] != "RED" {
		t.Fatalf("expected RED status, got %v", decoded["status"])
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "md": FormatMarkdown, "text": FormatText} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
