package offline

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pack_audit/internal/config"
	"pack_audit/internal/gate"
	"pack_audit/internal/ingest"
	"pack_audit/internal/report"
)

type failTransport struct{}

func (f failTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled for offline test")
}

func TestOfflineMode(t *testing.T) {
	original := http.DefaultTransport
	http.DefaultTransport = failTransport{}
	t.Cleanup(func() { http.DefaultTransport = original })

	dir := t.TempDir()
	body := `{"id":"offline","scenario":"work","level":"A1","prompts":[` +
		`{"id":"1","text":"Ich gehe am Montag zur Arbeit.","slotsChanged":["day","verb"]},` +
		`{"id":"2","text":"Das Meeting beginnt um 9 Uhr.","slotsChanged":["time","subject"]}]}`
	if err := os.WriteFile(filepath.Join(dir, "offline.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	corpus, err := ingest.LoadCorpus(dir, ingest.Options{Workers: 2})
	if err != nil {
		t.Fatalf("expected loading to work offline: %v", err)
	}

	cfg := config.Default()
	dict, err := cfg.Dictionary()
	if err != nil {
		t.Fatalf("expected the built-in dictionary to load offline: %v", err)
	}
	result := gate.NewEngine(cfg.Thresholds, dict).Evaluate(corpus.Packs)
	if result.Summary.Total != 1 {
		t.Fatalf("expected one pack report, got %d", result.Summary.Total)
	}

	if !strings.Contains(report.Markdown(result), "`offline`") {
		t.Fatal("expected report rendering to work offline")
	}
}
