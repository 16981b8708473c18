package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pack_audit/internal/db"
	"pack_audit/internal/gate"
	"pack_audit/internal/ingest"
	"pack_audit/internal/report"
	"pack_audit/internal/workspace"
)

type auditFlags struct {
	format string
	out    string
	save   bool
	record bool
	failOn string
}

func newAuditCmd(a *app) *cobra.Command {
	f := &auditFlags{}
	cmd := &cobra.Command{
		Use:   "audit [corpus-path]",
		Short: "Gate every pack of a corpus",
		Long: `Loads a corpus (directory, index.json page chain, single pack or .zip bundle),
evaluates every pack and prints the report.

The command exits with status 2 when the corpus status reaches --fail-on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, a, f, args[0])
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "Output format: text, markdown or json")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&f.save, "save", false, "Save report.json and report.md in the workspace")
	cmd.Flags().BoolVar(&f.record, "record", false, "Record the run in the workspace history database")
	cmd.Flags().StringVar(&f.failOn, "fail-on", "red", "Fail when the corpus reaches this status: red, yellow or none")
	return cmd
}

func runAudit(cmd *cobra.Command, a *app, f *auditFlags, path string) error {
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}
	failOn, gated, err := parseFailOn(f.failOn)
	if err != nil {
		return err
	}

	dict, err := a.cfg.Dictionary()
	if err != nil {
		return fmt.Errorf("load scenario dictionary: %w", err)
	}
	corpus, err := ingest.LoadCorpus(path, ingest.Options{Workers: a.cfg.Workers, Logger: a.logger})
	if err != nil {
		return err
	}

	engine := gate.NewEngine(a.cfg.Thresholds, dict)
	result := engine.Evaluate(corpus.Packs)
	a.logger.Info("audit finished",
		"corpus", path,
		"status", result.Status.String(),
		"packs", result.Summary.Total,
		"red", result.Summary.Red,
		"yellow", result.Summary.Yellow,
	)

	if err := writeReport(cmd.OutOrStdout(), f.out, result, format); err != nil {
		return err
	}

	if f.save || f.record {
		root, err := a.workspaceRoot()
		if err != nil {
			return fmt.Errorf("workspace: %w", err)
		}
		if f.save {
			info, err := workspace.SaveReport(root, path, result)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", info.Root)
		}
		if f.record {
			runID, err := db.PersistRun(workspace.DBPath(root), path, result)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Run recorded as %s\n", runID)
		}
	}

	if gated && result.Status >= failOn {
		blocking := result.Blocking(failOn)
		if len(blocking) == 0 {
			return fmt.Errorf("%w: corpus is %s", errGateFailed, result.Status)
		}
		return fmt.Errorf("%w: %s", errGateFailed, strings.Join(blocking, ", "))
	}
	return nil
}

func writeReport(stdout io.Writer, outPath string, r gate.CorpusReport, format report.Format) error {
	if outPath == "" {
		return report.Write(stdout, r, format)
	}
	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	if err := report.Write(file, r, format); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return file.Close()
}

// parseFailOn returns gated=false for "none".
func parseFailOn(s string) (gate.Severity, bool, error) {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return gate.Green, false, nil
	}
	sev, err := gate.ParseSeverity(s)
	if err != nil {
		return gate.Green, false, fmt.Errorf("--fail-on: %w", err)
	}
	if sev == gate.Green {
		return gate.Green, false, fmt.Errorf("--fail-on must be red, yellow or none")
	}
	return sev, true, nil
}
