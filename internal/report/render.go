// Package report renders corpus reports for terminals, markdown consumers and JSON files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"pack_audit/internal/gate"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatMarkdown, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

func Write(w io.Writer, r gate.CorpusReport, f Format) error {
	switch f {
	case FormatJSON:
		raw, err := JSON(r)
		if err != nil {
			return err
		}
		_, err = w.Write(append(raw, '\n'))
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	default:
		_, err := io.WriteString(w, Text(r))
		return err
	}
}

func JSON(r gate.CorpusReport) ([]byte, error) {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return raw, nil
}

func Text(r gate.CorpusReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Corpus: %s (%d packs: %d red, %d yellow, %d green)\n",
		r.Status, r.Summary.Total, r.Summary.Red, r.Summary.Yellow, r.Summary.Green)
	for _, issue := range r.Issues {
		fmt.Fprintf(&sb, "  ! %s\n", issue)
	}
	for _, p := range r.Packs {
		fmt.Fprintf(&sb, "[%-6s] %s (%s/%s) prompts=%d nearDup=%.1f%% tokens=%d multiSlot=%.1f%%\n",
			p.Status, p.PackID, p.Scenario, p.Level, p.Metrics.PromptCount,
			p.Metrics.NearDuplicateRate*100, p.Metrics.UniqueScenarioTokensUsed, p.Metrics.MultiSlotRate*100)
		for _, issue := range p.Issues {
			fmt.Fprintf(&sb, "    - %s\n", issue)
		}
	}
	return sb.String()
}

func Markdown(r gate.CorpusReport) string {
	var sb strings.Builder
	sb.WriteString("# Pack Quality Report\n\n")
	fmt.Fprintf(&sb, "**Status:** %s\n\n", r.Status)
	fmt.Fprintf(&sb, "| Total | RED | YELLOW | GREEN |\n|---|---|---|---|\n| %d | %d | %d | %d |\n\n",
		r.Summary.Total, r.Summary.Red, r.Summary.Yellow, r.Summary.Green)

	if len(r.Issues) > 0 {
		sb.WriteString("## Corpus Issues\n\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Distribution\n\n")
	writeCounts(&sb, "Scenario", r.Distribution.ByScenario)
	writeCounts(&sb, "Level", r.Distribution.ByLevel)
	writeCounts(&sb, "Structure", r.Distribution.ByStructure)

	sb.WriteString("## Packs\n\n")
	sb.WriteString("| Pack | Status | Prompts | Near-dup | Tokens | Multi-slot |\n")
	sb.WriteString("|------|--------|---------|----------|--------|------------|\n")
	for _, p := range r.Packs {
		fmt.Fprintf(&sb, "| `%s` | %s | %d | %.1f%% | %d | %.1f%% |\n",
			p.PackID, p.Status, p.Metrics.PromptCount, p.Metrics.NearDuplicateRate*100,
			p.Metrics.UniqueScenarioTokensUsed, p.Metrics.MultiSlotRate*100)
	}
	sb.WriteString("\n")

	for _, p := range r.Packs {
		if len(p.Issues) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "### %s (%s)\n\n", p.PackID, p.Status)
		for _, issue := range p.Issues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeCounts(sb *strings.Builder, label string, counts map[string]int) {
	fmt.Fprintf(sb, "**By %s:** ", label)
	keys := slices.Sorted(maps.Keys(counts))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	if len(parts) == 0 {
		sb.WriteString("_none_")
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString("\n\n")
}
