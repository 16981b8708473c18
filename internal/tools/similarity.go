package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pack_audit/internal/similarity"
	"pack_audit/internal/textnorm"
)

// SimilarityTool handles the pqa_similarity MCP tool. It explains how two
// sentences compare so authors can see why a pair was flagged.
type SimilarityTool struct {
	threshold float64
}

func NewSimilarityTool(nearDuplicateThreshold float64) *SimilarityTool {
	return &SimilarityTool{threshold: nearDuplicateThreshold}
}

func (t *SimilarityTool) Definition() mcp.Tool {
	return mcp.NewTool("pqa_similarity",
		mcp.WithDescription("Score two sentences the way the near-duplicate check does and show "+
			"their normalized forms and skeletons."),
		mcp.WithString("a", mcp.Required(), mcp.Description("First sentence.")),
		mcp.WithString("b", mcp.Required(), mcp.Description("Second sentence.")),
	)
}

func (t *SimilarityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := req.GetString("a", "")
	b := req.GetString("b", "")
	if a == "" && b == "" {
		return mcp.NewToolResultError("provide at least one of 'a' or 'b'"), nil
	}

	na, nb := textnorm.Normalize(a), textnorm.Normalize(b)
	score := similarity.Score(a, b)
	verdict := "distinct"
	if score >= t.threshold {
		verdict = "near-duplicate"
	}

	response := fmt.Sprintf(
		"# Similarity\n\n"+
			"| | A | B |\n|---|---|---|\n"+
			"| normalized | `%s` | `%s` |\n"+
			"| skeleton | `%s` | `%s` |\n\n"+
			"- **Jaccard:** %.3f\n"+
			"- **Edit distance:** %.3f\n"+
			"- **Score:** %.3f (threshold %.2f: %s)\n",
		na, nb,
		textnorm.Skeleton(na), textnorm.Skeleton(nb),
		similarity.Jaccard(similarity.TokenSet(na), similarity.TokenSet(nb)),
		similarity.NormalizedEditDistance(na, nb),
		score, t.threshold, verdict,
	)
	return mcp.NewToolResultText(response), nil
}
