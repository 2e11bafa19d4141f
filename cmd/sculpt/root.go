package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/sculpt/internal/cli"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "sculpt",
	Short: "Sculpt edits immutable state trees",
	Long: `Sculpt applies edits to JSON and YAML state trees without mutating them,
diffs snapshots, and serves named state slots driven by declarative actions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", cli.DefaultConfigFile, "Path to the sculpt configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error or off (overrides the config)")
}

// loadConfig reads the configuration named by --config. The default file is
// optional; an explicit one must exist.
func loadConfig(cmd *cobra.Command) (cli.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cli.LoadConfig(path, cmd.Flags().Changed("config"))
	if err != nil {
		return cfg, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	logger, err := cli.CreateLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// openRuntime loads the configuration and assembles a slot manager from it.
// extra hooks run after the debug logging hooks.
func openRuntime(cmd *cobra.Command, extra ...domain.LifecycleHooks) (*cli.Runtime, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	hooks := cli.DebugHooks(logger)
	for _, h := range extra {
		hooks = hooks.Merge(h)
	}
	rt, err := cli.BuildRuntime(cmd.Context(), cfg, logger, hooks)
	if err != nil {
		return nil, nil, err
	}
	return rt, logger, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
