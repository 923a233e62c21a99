package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"botfleet/internal/api"
	"botfleet/internal/cli"
)

func newUpdateCmd(o *options) *cobra.Command {
	var (
		f        botFlags
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the configuration or code of a bot",
		Long: `Change the configuration or code of a running bot. Only the flags that are
given are changed; --env and --env-file replace the whole environment.

With --wait the command follows the rollout through the validation, upload,
config, restart and complete stages.

Examples:
  botfleet update bot-echo --code echo.zip --wait
  botfleet update bot-echo --version 3.12 -e LOG_LEVEL=info`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := f.changes(cmd)
			if err != nil {
				return err
			}
			p, err := o.printer()
			if err != nil {
				return err
			}

			if !wait {
				bot, err := o.client().Update(cmd.Context(), args[0], changes, o.tenant())
				if err != nil {
					return err
				}
				return p.Bot(bot)
			}

			detail, err := cli.UpdateWithProgress(cmd.Context(), o.client(), args[0], changes, o.tenant(), cli.UpdateOptions{
				PollInterval: interval,
				Quiet:        o.flags.Quiet,
				Out:          o.errOut,
			})
			if err != nil {
				return err
			}
			return p.Detail(detail)
		},
	}

	f.register(cmd, false)
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the rollout to complete")
	cmd.Flags().DurationVar(&interval, "poll-interval", time.Second, "Delay between two status polls with --wait")
	return cmd
}

// changes converts the flags that were set into a change set.
func (f *botFlags) changes(cmd *cobra.Command) (api.BotChanges, error) {
	var c api.BotChanges
	changed := cmd.Flags().Changed

	if changed("language") {
		c.Language = &f.language
	}
	if changed("version") {
		c.Version = &f.version
	}
	if changed("image") {
		c.Image = &f.image
	}
	if changed("start-command") {
		c.StartCommand = &f.startCommand
	}
	if changed("workflow") {
		c.WorkflowID = &f.workflowID
	}
	if changed("env") || changed("env-file") {
		env, err := parseEnv(f.env, f.envFile)
		if err != nil {
			return api.BotChanges{}, err
		}
		if env == nil {
			env = []api.EnvVar{}
		}
		c.Env = &env
	}
	code, err := readCode(f.codePath)
	if err != nil {
		return api.BotChanges{}, err
	}
	c.Code = code
	return c, nil
}
