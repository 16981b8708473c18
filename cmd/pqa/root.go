package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pack_audit/internal/config"
	"pack_audit/internal/logging"
	"pack_audit/internal/workspace"
)

// app carries the global flags and what PersistentPreRunE resolves from them.
type app struct {
	verbose    bool
	configPath string
	wsDir      string

	cfg    config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pqa",
		Short: "Pack quality gate for language-learning drill packs",
		Long: `pqa measures every pack of a corpus and returns RED, YELLOW or GREEN.

RED packs repeat themselves (near-duplicates, sentences copied from other packs,
overused sentence skeletons), miss their scenario vocabulary or leave declared
variation slots unused. YELLOW packs are close to those limits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, err := logging.New(cfg.LogMode, a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: <workspace>/configs/pqa.yaml)")
	rootCmd.PersistentFlags().StringVarP(&a.wsDir, "workspace", "w", "", "Workspace directory (default: ~/PackAudit)")

	rootCmd.AddCommand(
		newAuditCmd(a),
		newSimilarityCmd(a),
		newSkeletonCmd(),
		newInitCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig prefers --config, then the workspace config. Without either
// flag the built-in defaults apply and the home directory is not touched.
func (a *app) loadConfig() (config.Config, error) {
	switch {
	case a.configPath != "":
		return config.Load(a.configPath)
	case a.wsDir != "":
		return config.Load(workspace.ConfigPath(a.wsDir))
	default:
		return config.Default(), nil
	}
}

// workspaceRoot creates the workspace on first use.
func (a *app) workspaceRoot() (string, error) {
	if a.wsDir != "" {
		return workspace.EnsureAt(a.wsDir)
	}
	return workspace.EnsureDefault()
}
