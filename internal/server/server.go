// Package server wires the quality gate into an MCP server instance.
//
// It is the composition root: configuration and the scenario dictionary are
// resolved here and injected into the tool handlers.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"pack_audit/internal/config"
	"pack_audit/internal/gate"
	"pack_audit/internal/logging"
	"pack_audit/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

type Options struct {
	Config config.Config
	// DBPath enables audit history when non-empty.
	DBPath string
	Logger *logging.Logger
}

func New(opts Options) (*server.MCPServer, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	dict, err := opts.Config.Dictionary()
	if err != nil {
		return nil, fmt.Errorf("loading scenario dictionary: %w", err)
	}
	engine := gate.NewEngine(opts.Config.Thresholds, dict)

	s := server.NewMCPServer(
		"pqa",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	audit := tools.NewAuditTool(engine, opts.Config.Workers, opts.DBPath, log)
	s.AddTool(audit.Definition(), audit.Handle)

	sim := tools.NewSimilarityTool(opts.Config.Thresholds.NearDuplicateSimilarity)
	s.AddTool(sim.Definition(), sim.Handle)

	if opts.DBPath != "" {
		history := tools.NewHistoryTool(opts.DBPath)
		s.AddTool(history.Definition(), history.Handle)
	}

	log.Info("mcp server ready", "scenarios", dict.Len(), "history", opts.DBPath != "")
	return s, nil
}

func serverInstructions() string {
	return `pqa audits drill packs before they are published.

Call pqa_audit_corpus with the corpus directory to get a verdict per pack:
- RED: the pack must not ship. Fix every listed issue.
- YELLOW: the pack may ship, but the issues are worth a look.
- GREEN: no issues.

Use pqa_similarity to see why two sentences were reported as near-duplicates.
When history is enabled, pqa_history lists earlier audits.`
}
