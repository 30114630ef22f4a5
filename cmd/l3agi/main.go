package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/psyuktha/L3AGI/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	configPath string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "l3agi",
		Short:         "Run conversational agents and evaluate them offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			a.cfg = config.Load(a.configPath, a.logger)
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $L3AGI_CONFIG or l3agi.toml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.AddCommand(newChatCommand(a))
	cmd.AddCommand(newEvalCommand(a))
	cmd.AddCommand(newHistoryCommand(a))
	return cmd
}
