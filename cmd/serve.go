package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"botfleet/internal/app"
)

func newServeCmd() *cobra.Command {
	var (
		debug      bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bot lifecycle API server",
		Long: `Starts the lifecycle API server that deploys and operates bots in the
configured Kubernetes namespace.

Configuration:
  botfleet loads ~/.config/botfleet/config.yaml unless --config points at
  another file. A missing default file means built-in defaults. Changes to the
  language catalog and log level in the file are applied without a restart.

Tenant requests carry the X-Tenant-ID header. When server.adminToken is set,
the admin API under /admin/v1 is enabled and guarded by X-Admin-Token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.NewConfig(debug, configPath, version)

			application, err := app.NewApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	return cmd
}
