package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"pack_audit/internal/db"
	pqaserver "pack_audit/internal/server"
	"pack_audit/internal/similarity"
	"pack_audit/internal/textnorm"
	"pack_audit/internal/workspace"
)

func newSimilarityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "similarity [a] [b]",
		Short: "Score two sentences like the near-duplicate check does",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			na, nb := textnorm.Normalize(args[0]), textnorm.Normalize(args[1])
			score := similarity.Score(args[0], args[1])
			threshold := a.cfg.Thresholds.NearDuplicateSimilarity
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "a:        %s\n", na)
			fmt.Fprintf(out, "b:        %s\n", nb)
			fmt.Fprintf(out, "jaccard:  %.3f\n", similarity.Jaccard(similarity.TokenSet(na), similarity.TokenSet(nb)))
			fmt.Fprintf(out, "edit:     %.3f\n", similarity.NormalizedEditDistance(na, nb))
			fmt.Fprintf(out, "score:    %.3f\n", score)
			if score >= threshold {
				fmt.Fprintf(out, "verdict:  near-duplicate (>= %.2f)\n", threshold)
			} else {
				fmt.Fprintf(out, "verdict:  distinct (< %.2f)\n", threshold)
			}
			return nil
		},
	}
}

func newSkeletonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skeleton [text...]",
		Short: "Print the normalized form and skeleton of each argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, text := range args {
				n := textnorm.Normalize(text)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", n, textnorm.Skeleton(n))
			}
			return nil
		},
	}
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the workspace with a default pqa.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.workspaceRoot()
			if err != nil {
				return fmt.Errorf("workspace initialization failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pack Audit workspace ready at: %s\n", filepath.Clean(root))
			fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\n", workspace.ConfigPath(root))
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	var runID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded audits, or the issues of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.workspaceRoot()
			if err != nil {
				return fmt.Errorf("workspace: %w", err)
			}
			dbPath := workspace.DBPath(root)
			out := cmd.OutOrStdout()

			if runID != "" {
				issues, err := db.RunIssues(dbPath, runID)
				if err != nil {
					return err
				}
				for _, issue := range issues {
					fmt.Fprintln(out, issue)
				}
				return nil
			}

			runs, err := db.RecentRuns(dbPath, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No audits recorded yet.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %-6s  packs=%d red=%d yellow=%d green=%d  %s\n",
					r.ID, r.CreatedAt, r.Status, r.PackCount, r.Red, r.Yellow, r.Green, r.Corpus)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the issues recorded for this run")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pqaserver.Options{Config: a.cfg, Logger: a.logger}
			if history {
				root, err := a.workspaceRoot()
				if err != nil {
					return fmt.Errorf("workspace: %w", err)
				}
				opts.DBPath = workspace.DBPath(root)
			}
			s, err := pqaserver.New(opts)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return server.ServeStdio(s)
		},
	}
	cmd.Flags().BoolVar(&history, "history", true, "Record audits in the workspace history database")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pqa %s\n", strings.TrimPrefix(pqaserver.Version, "v"))
		},
	}
}
