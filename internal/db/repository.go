package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pack_audit/internal/gate"
)

type Run struct {
	ID        string
	Corpus    string
	CreatedAt string
	Status    gate.Severity
	PackCount int
	Red       int
	Yellow    int
	Green     int
}

var timeNow = time.Now

// PersistRun stores one audit of corpus and returns the new run id. Corpus
// level issues are stored with an empty pack_id.
func PersistRun(dbPath, corpus string, report gate.CorpusReport) (string, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	tx, err := conn.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	runID := uuid.NewString()
	if _, err := tx.Exec(
		`INSERT INTO audit_runs(id, corpus, created_at, status, pack_count, red, yellow, green) VALUES(?,?,?,?,?,?,?,?)`,
		runID,
		corpus,
		timeNow().UTC().Format(time.RFC3339Nano),
		report.Status.String(),
		report.Summary.Total,
		report.Summary.Red,
		report.Summary.Yellow,
		report.Summary.Green,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, issue := range report.Issues {
		if _, err := tx.Exec(`INSERT INTO issues(run_id, pack_id, message) VALUES(?,?,?)`, runID, "", issue); err != nil {
			return "", fmt.Errorf("insert corpus issue: %w", err)
		}
	}

	for _, p := range report.Packs {
		metrics, err := json.Marshal(p.Metrics)
		if err != nil {
			return "", fmt.Errorf("marshal metrics for %s: %w", p.PackID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO pack_reports(run_id, pack_id, scenario, level, status, metrics) VALUES(?,?,?,?,?,?)`,
			runID,
			p.PackID,
			p.Scenario,
			p.Level,
			p.Status.String(),
			string(metrics),
		); err != nil {
			return "", fmt.Errorf("insert pack report: %w", err)
		}
		for _, issue := range p.Issues {
			if _, err := tx.Exec(`INSERT INTO issues(run_id, pack_id, message) VALUES(?,?,?)`, runID, p.PackID, issue); err != nil {
				return "", fmt.Errorf("insert issue: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return runID, nil
}

// RecentRuns lists the newest runs first.
func RecentRuns(dbPath string, limit int) ([]Run, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if limit <= 0 {
		limit = 20
	}
	rows, err := conn.Query(
		`SELECT id, corpus, created_at, status, pack_count, red, yellow, green
		 FROM audit_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.Corpus, &r.CreatedAt, &status, &r.PackCount, &r.Red, &r.Yellow, &r.Green); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := r.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// RunIssues returns the issues recorded for a run, corpus issues first.
func RunIssues(dbPath, runID string) ([]string, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.Query(`SELECT pack_id, message FROM issues WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var packID, msg string
		if err := rows.Scan(&packID, &msg); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		if packID != "" {
			msg = packID + ": " + msg
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func CountRows(dbPath, table string) (int, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return countRowsConn(conn, table)
}

func countRowsConn(conn *sql.DB, table string) (int, error) {
	row := conn.QueryRow(`SELECT COUNT(*) FROM ` + table)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}
