package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/rodekruis/qfa/internal/config"
)

var version = ""

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qfa",
		Short: "Hierarchical classification of free-text feedback",
		Long: `qfa classifies free-text feedback against a taxonomy of one to three
levels that lives in the system the feedback came from (KoboToolbox forms,
EspoCRM entities). Taxonomies are cached locally and reloaded when the
source reports a change.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", config.DefaultPath, "Path to the YAML config file")
	cmd.PersistentFlags().String("log-level", "", "Override the configured log level")

	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewModelCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
