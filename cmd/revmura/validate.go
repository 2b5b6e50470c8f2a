package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/revmura/revmura-suite/bootstrap"
	"github.com/revmura/revmura-suite/config"
	hostversion "github.com/revmura/revmura-suite/domain/version"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the Revmura configuration file.

Checks:
  - YAML syntax is valid
  - Versions, module ids and key hashes are well formed
  - Registered modules pass the version gate (optional)
  - Database is reachable and migrated (optional)

Examples:
  revmura validate
  revmura validate --config /etc/revmura/revmura.yaml --check-database`,
	RunE: runValidate,
}

var (
	validateCheckModules  bool
	validateCheckDatabase bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckModules, "check-modules", true, "check registered modules against the host versions")
	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check the database opens and migrates")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	var cfg *config.Config
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file not found, using environment and defaults\n", crossMark)
		loaded, err := config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		cfg = loaded
	} else {
		fmt.Fprintf(out, "  %s Config file exists\n", checkMark)
		loaded, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(out, "  %s Config syntax valid\n", crossMark)
			return fmt.Errorf("config error: %w", err)
		}
		cfg = loaded
		fmt.Fprintf(out, "  %s Config syntax valid\n", checkMark)
	}

	fmt.Fprintf(out, "  %s Listen: %s\n", checkMark, cfg.Server.Addr())
	fmt.Fprintf(out, "  %s Database: %s (%s)\n", checkMark, cfg.Database.DSN, cfg.Database.Driver)
	fmt.Fprintf(out, "  %s Host runtime %s, language runtime %s\n", checkMark, cfg.Host.Runtime, cfg.Host.LanguageRuntime)
	if cfg.Host.API == "" {
		fmt.Fprintf(out, "  %s Host API: missing, no modules will load\n", crossMark)
	} else {
		fmt.Fprintf(out, "  %s Host API: %s\n", checkMark, cfg.Host.API)
	}
	fmt.Fprintf(out, "  %s Modules: %s\n", checkMark, strings.Join(cfg.Modules.Registered, ", "))
	if cfg.Admin.Enabled() {
		fmt.Fprintf(out, "  %s Admin API enabled\n", checkMark)
	} else {
		fmt.Fprintf(out, "  %s Admin API disabled (no admin.api_key_hash)\n", crossMark)
	}

	var failed bool

	if validateCheckModules && cfg.Host.API != "" {
		// An in-memory store keeps the gate check free of side effects.
		probe := *cfg
		probe.Database = config.DatabaseConfig{Driver: "memory"}
		a, err := bootstrap.New(bootstrap.Options{Config: &probe, Version: version, LogOutput: io.Discard})
		if err != nil {
			return err
		}
		for _, mod := range a.Registry.Descriptors() {
			res := hostversion.Check(mod.Requirements(), cfg.Host)
			if res.OK() {
				fmt.Fprintf(out, "  %s Module %s %s compatible\n", checkMark, mod.ID, mod.Version)
				continue
			}
			fmt.Fprintf(out, "  %s Module %s needs a newer %s\n", crossMark, mod.ID, strings.Join(res.Names(), ", "))
			failed = true
		}
		a.Close()
	}

	if validateCheckDatabase {
		if err := checkDatabase(cmd); err != nil {
			fmt.Fprintf(out, "  %s Database reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
			failed = true
		} else {
			fmt.Fprintf(out, "  %s Database reachable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	if failed {
		return fmt.Errorf("validation failed")
	}
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkDatabase(cmd *cobra.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.DB.PingContext(ctx)
}
