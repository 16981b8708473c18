// Package tools implements the MCP tool handlers that expose the quality gate.
//
// Each tool receives its dependencies through its struct and returns a
// handler compatible with mcp-go's CallToolRequest signature.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pack_audit/internal/db"
	"pack_audit/internal/gate"
	"pack_audit/internal/ingest"
	"pack_audit/internal/logging"
	"pack_audit/internal/report"
)

// AuditTool handles the pqa_audit_corpus MCP tool.
// When dbPath is set every audit is recorded in the history database.
type AuditTool struct {
	engine  *gate.Engine
	workers int
	dbPath  string
	log     *logging.Logger
}

func NewAuditTool(engine *gate.Engine, workers int, dbPath string, log *logging.Logger) *AuditTool {
	if log == nil {
		log = logging.Nop()
	}
	return &AuditTool{engine: engine, workers: workers, dbPath: dbPath, log: log}
}

func (t *AuditTool) Definition() mcp.Tool {
	return mcp.NewTool("pqa_audit_corpus",
		mcp.WithDescription(
			"Audit a corpus of drill packs for duplicates, scenario vocabulary coverage and "+
				"slot variation. Returns a RED/YELLOW/GREEN verdict per pack with the issues found. "+
				"RED packs should not be published; YELLOW is advisory.",
		),
		mcp.WithString("corpus_path",
			mcp.Required(),
			mcp.Description("Directory, index.json page, single pack file or .zip bundle to audit."),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default), 'text' or 'json'."),
			mcp.Enum(string(report.FormatMarkdown), string(report.FormatText), string(report.FormatJSON)),
		),
		mcp.WithString("pack_id",
			mcp.Description("Only show this pack in the output. The whole corpus is still audited, "+
				"since cross-pack duplicates depend on every pack."),
		),
	)
}

func (t *AuditTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(req.GetString("corpus_path", ""))
	if path == "" {
		return mcp.NewToolResultError("'corpus_path' is required"), nil
	}
	format, err := report.ParseFormat(req.GetString("format", string(report.FormatMarkdown)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	packID := strings.TrimSpace(req.GetString("pack_id", ""))

	corpus, err := ingest.LoadCorpus(path, ingest.Options{Workers: t.workers, Logger: t.log})
	if err != nil {
		if errors.Is(err, ingest.ErrNoPacks) {
			return mcp.NewToolResultError(fmt.Sprintf("No packs found under %s.", path)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Loading corpus failed: %v", err)), nil
	}

	result := t.engine.Evaluate(corpus.Packs)
	runID := ""
	if t.dbPath != "" {
		runID, err = db.PersistRun(t.dbPath, path, result)
		if err != nil {
			t.log.Warn("recording audit run failed", "error", err)
		}
	}
	if packID != "" {
		filtered, ok := onlyPack(result, packID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Pack %q not found in corpus.", packID)), nil
		}
		result = filtered
	}

	var sb strings.Builder
	if err := report.Write(&sb, result, format); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	if len(corpus.Warnings) > 0 && format != report.FormatJSON {
		sb.WriteString("\n## Skipped Files\n\n")
		for _, w := range corpus.Warnings {
			fmt.Fprintf(&sb, "- `%s`: %s\n", w.Source, w.Reason)
		}
	}
	if runID != "" && format != report.FormatJSON {
		fmt.Fprintf(&sb, "\n_Run recorded as `%s`._\n", runID)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func onlyPack(r gate.CorpusReport, packID string) (gate.CorpusReport, bool) {
	for _, p := range r.Packs {
		if p.PackID == packID {
			r.Packs = []gate.PackReport{p}
			return r, true
		}
	}
	return r, false
}
