package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pack_audit/internal/db"
)

// HistoryTool handles the pqa_history MCP tool.
type HistoryTool struct {
	dbPath string
}

func NewHistoryTool(dbPath string) *HistoryTool {
	return &HistoryTool{dbPath: dbPath}
}

func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("pqa_history",
		mcp.WithDescription("List recent corpus audits, newest first. Pass run_id to see the issues of one run."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs to list (default 10).")),
		mcp.WithString("run_id", mcp.Description("Show the issues recorded for this run instead of the list.")),
	)
}

func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.dbPath == "" {
		return mcp.NewToolResultError("audit history is not configured"), nil
	}

	if runID := strings.TrimSpace(req.GetString("run_id", "")); runID != "" {
		issues, err := db.RunIssues(t.dbPath, runID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Reading run %s failed: %v", runID, err)), nil
		}
		if len(issues) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("Run `%s` recorded no issues.", runID)), nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "# Issues for run `%s`\n\n", runID)
		for _, issue := range issues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}

	runs, err := db.RecentRuns(t.dbPath, req.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Reading history failed: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No audits recorded yet."), nil
	}

	var sb strings.Builder
	sb.WriteString("# Audit History\n\n")
	sb.WriteString("| Run | When | Corpus | Status | Packs | RED | YELLOW | GREEN |\n")
	sb.WriteString("|-----|------|--------|--------|-------|-----|--------|-------|\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %d | %d | %d | %d |\n",
			r.ID, r.CreatedAt, r.Corpus, r.Status, r.PackCount, r.Red, r.Yellow, r.Green)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
