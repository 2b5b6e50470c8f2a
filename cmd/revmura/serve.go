package main

import (
	"fmt"

	"github.com/revmura/revmura-suite/bootstrap"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Boot modules and start the HTTP server",
	Long: `Boot the enabled modules and start the HTTP server.

The server will:
  - Load configuration from revmura.yaml (or --config)
  - Or load configuration from REVMURA_* environment variables
  - Open the settings store and apply migrations
  - Gate every registered module against the host versions
  - Boot the enabled, compatible modules and register saved schemas
  - Serve health, metrics, content types and the admin API

Environment variables (for Docker deployments):
  REVMURA_DATABASE_DSN       - Database path (default: revmura.db)
  REVMURA_SERVER_PORT        - Server port (default: 8080)
  REVMURA_HOST_API           - Core API version (empty: core missing)
  REVMURA_ADMIN_API_KEY_HASH - Bcrypt hash of the admin API key
  REVMURA_LOG_LEVEL          - Log level: debug, info, warn, error

Examples:
  revmura serve
  revmura serve --config /etc/revmura/revmura.yaml
  revmura serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		Watch:      hotReload,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	return app.Run()
}
