package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

func newLogsCmd(o *options) *cobra.Command {
	var tail int64
	cmd := &cobra.Command{
		Use:   "logs ID",
		Short: "Print the logs of a bot",
		Long: `Print the logs of the bot's running pod, or of its newest pod when none is
running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.printer()
			if err != nil {
				return err
			}
			var tailLines *int64
			if cmd.Flags().Changed("tail") {
				tailLines = &tail
			}

			logs, err := o.client().Logs(cmd.Context(), args[0], tailLines, o.tenant())
			if err != nil {
				return err
			}
			return p.Logs(logs)
		},
	}
	cmd.Flags().Int64Var(&tail, "tail", 100, "Number of lines from the end of the log")
	return cmd
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Show the status, update stage and pods of a bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.printer()
			if err != nil {
				return err
			}
			detail, err := o.client().Status(cmd.Context(), args[0], o.tenant())
			if err != nil {
				return err
			}
			return p.Detail(detail)
		},
	}
}

func newExecCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exec ID -- COMMAND [ARG...]",
		Short: "Run a shell command in a running pod of a bot",
		Long: `Run a shell command in a running pod of a bot. The arguments after the id are
joined with spaces and run through sh -c.

Examples:
  botfleet exec bot-echo -- ls -la /app`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.printer()
			if err != nil {
				return err
			}
			result, err := o.client().Exec(cmd.Context(), args[0], strings.Join(args[1:], " "), o.tenant())
			if err != nil {
				return err
			}
			return p.Exec(result)
		},
	}
}

func newMetricsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics ID",
		Short: "Show CPU and memory usage of a bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.printer()
			if err != nil {
				return err
			}
			m, err := o.client().Metrics(cmd.Context(), args[0], o.tenant())
			if err != nil {
				return err
			}
			return p.Metrics(m)
		},
	}
}
