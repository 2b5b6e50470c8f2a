package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/revmura/revmura-suite/adapters/auth"
	"github.com/revmura/revmura-suite/bootstrap"
	"github.com/revmura/revmura-suite/config"
	"github.com/revmura/revmura-suite/core/formatter"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "revmura",
	Short: "Module host with version gating and a content-type schema store",
	Long: `Revmura hosts a fixed set of feature modules.

Each module declares the host runtime, host API and language runtime
versions it needs. Modules that pass the gate and are enabled get booted;
the content-type module keeps a persisted schema of content types and
taxonomies.

Quick start:
  revmura serve             # Boot modules and start the HTTP server
  revmura modules list      # Show module states

Management:
  revmura modules   # Enable, disable or uninstall modules
  revmura schema    # Inspect and edit the content-type schema
  revmura settings  # Inspect raw persisted settings
  revmura validate  # Validate configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write host logs to stderr")
}

// openApp builds the application without booting modules or serving HTTP.
// Changes made through it take effect at the next boot.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	var logs io.Writer = io.Discard
	if verbose {
		logs = cmd.ErrOrStderr()
	}
	return bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		LogOutput:  logs,
	})
}

// operatorContext marks the command as run by the local operator, who may
// administer modules and schemas.
func operatorContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return auth.WithActor(ctx, auth.LocalOperator)
}

func render(cmd *cobra.Command, v any, t formatter.Table) error {
	return formatter.Write(cmd.OutOrStdout(), outputFormat, v, t)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
