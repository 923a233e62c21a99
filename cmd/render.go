package cmd

import (
	"github.com/spf13/cobra"

	"botfleet/internal/config"
	"botfleet/internal/manifest"
)

func newRenderCmd(o *options) *cobra.Command {
	var (
		f          botFlags
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "render NAME",
		Short: "Print the manifests a deploy would create",
		Long: `Build the config map, deployment and service for a bot locally and print
them as YAML, without contacting the server or the cluster. The language
catalog and defaults come from the server configuration file.

Examples:
  botfleet render echo -l python --code echo.zip | kubectl apply --dry-run=client -f -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg, err := f.config(args[0])
			if err != nil {
				return err
			}
			if cfg.UserID == "" {
				cfg.UserID = o.tenant()
			}

			builder := manifest.NewBuilder(manifest.OptionsFromConfig(bc), manifest.NewCatalog(bc.Languages))
			m, err := builder.Build(cfg)
			if err != nil {
				return err
			}
			data, err := manifest.Render(m)
			if err != nil {
				return err
			}
			_, err = o.out.Write(data)
			return err
		},
	}

	f.register(cmd, true)
	cmd.Flags().StringVar(&configPath, "config", "", "Path to the server configuration file")
	return cmd
}
