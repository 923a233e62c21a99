package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"botfleet/internal/api"
)

func newDeployCmd(o *options) *cobra.Command {
	var f botFlags
	cmd := &cobra.Command{
		Use:   "deploy NAME",
		Short: "Deploy a new bot",
		Long: `Deploy a new bot. The bot id is derived from NAME ("Echo Bot" becomes
bot-echo-bot) and must not exist yet.

Examples:
  botfleet deploy echo --language python --code echo.zip --start-command "python bot.py"
  botfleet deploy relay -l node --env-file relay.env -e LOG_LEVEL=debug`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args[0])
			if err != nil {
				return err
			}
			if o.tenant() != "" {
				cfg.UserID = o.tenant()
			}
			p, err := o.printer()
			if err != nil {
				return err
			}

			bot, err := o.client().Deploy(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return p.Bot(bot)
		},
	}
	f.register(cmd, true)
	return cmd
}

func newListCmd(o *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List bots",
		Long: `List the bots of the current tenant. With --all and an admin token, list
the bots of every tenant, or of --tenant only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.printer()
			if err != nil {
				return err
			}

			var bots []api.Bot
			if all {
				bots, err = o.client().ListAll(cmd.Context(), o.tenant())
			} else {
				bots, err = o.client().List(cmd.Context(), o.tenant())
			}
			if err != nil {
				return err
			}
			return p.Bots(bots)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "A", false, "List through the admin API")
	return cmd
}

func newGetCmd(o *options) *cobra.Command {
	return botCommand(o, "get ID", "Show one bot", func(cmd *cobra.Command, id string) (*api.Bot, error) {
		return o.client().Get(cmd.Context(), id, o.tenant())
	})
}

func newStartCmd(o *options) *cobra.Command {
	return botCommand(o, "start ID", "Scale a bot to one replica", func(cmd *cobra.Command, id string) (*api.Bot, error) {
		return o.client().Start(cmd.Context(), id, o.tenant())
	})
}

func newStopCmd(o *options) *cobra.Command {
	return botCommand(o, "stop ID", "Scale a bot to zero replicas", func(cmd *cobra.Command, id string) (*api.Bot, error) {
		return o.client().Stop(cmd.Context(), id, o.tenant())
	})
}

func newRestartCmd(o *options) *cobra.Command {
	return botCommand(o, "restart ID", "Recreate the deployment of a bot", func(cmd *cobra.Command, id string) (*api.Bot, error) {
		return o.client().Restart(cmd.Context(), id, o.tenant())
	})
}

// botCommand builds a command that takes a bot id and prints the resulting bot.
func botCommand(o *options, use, short string, run func(*cobra.Command, string) (*api.Bot, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.printer()
			if err != nil {
				return err
			}
			bot, err := run(cmd, args[0])
			if err != nil {
				return err
			}
			return p.Bot(bot)
		},
	}
}

func newDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a bot and its objects",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.client().Delete(cmd.Context(), args[0], o.tenant()); err != nil {
				return err
			}
			if !o.flags.Quiet {
				fmt.Fprintf(o.out, "bot %s deleted\n", args[0])
			}
			return nil
		},
	}
}

func newScaleCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scale ID REPLICAS",
		Short: "Set the replica count of a bot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			replicas, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return api.NewValidationError("replicas", fmt.Sprintf("%q is not a number", args[1]))
			}
			p, err := o.printer()
			if err != nil {
				return err
			}

			bot, err := o.client().Scale(cmd.Context(), args[0], int32(replicas), o.tenant())
			if err != nil {
				return err
			}
			return p.Bot(bot)
		},
	}
}
