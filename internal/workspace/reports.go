package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pack_audit/internal/gate"
	"pack_audit/internal/report"
)

type ReportInfo struct {
	ID           string
	Root         string
	JSONPath     string
	MarkdownPath string
}

// SaveReport writes report.json and report.md under reports/<corpus id>/.
// The corpus id is stable for a corpus path, so a rerun overwrites the
// previous report.
func SaveReport(workspaceRoot, corpusPath string, r gate.CorpusReport) (*ReportInfo, error) {
	id := corpusHash(corpusPath)
	dir := filepath.Join(workspaceRoot, "reports", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	info := &ReportInfo{
		ID:           id,
		Root:         dir,
		JSONPath:     filepath.Join(dir, "report.json"),
		MarkdownPath: filepath.Join(dir, "report.md"),
	}

	raw, err := report.JSON(r)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(info.JSONPath, raw, 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	if err := os.WriteFile(info.MarkdownPath, []byte(report.Markdown(r)), 0o644); err != nil {
		return nil, fmt.Errorf("write markdown report: %w", err)
	}
	return info, nil
}

func corpusHash(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	trimmed := strings.TrimSpace(filepath.Clean(path))
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])[:12]
}
