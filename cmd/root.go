package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"botfleet/internal/api"
	"botfleet/internal/cli"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeInvalid indicates the server rejected the input.
	ExitCodeInvalid = 2
	// ExitCodeNotFound indicates the bot does not exist.
	ExitCodeNotFound = 3
	// ExitCodeUnreachable indicates the server could not be reached.
	ExitCodeUnreachable = 4
)

var version = "dev"

// SetVersion sets the version reported by the version command and the server.
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return version
}

// options is the state shared by all commands of one invocation.
type options struct {
	flags   cli.CommandFlags
	envFile string
	out     io.Writer
	errOut  io.Writer
}

// newRootCmd builds the command tree.
func newRootCmd(out, errOut io.Writer) (*cobra.Command, *options) {
	o := &options{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "botfleet",
		Short: "Deploy and operate chat bots on Kubernetes",
		Long: `botfleet runs user-supplied bots as Kubernetes deployments.

Run 'botfleet serve' next to the cluster to expose the lifecycle API, then use
the other commands to deploy, inspect and operate bots through it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.loadEnvFile(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate(`{{printf "botfleet version %s\n" .Version}}`)

	cli.RegisterCommonFlags(root, &o.flags)
	root.PersistentFlags().StringVar(&o.envFile, "config-env", "", "Load BOTFLEET_* settings from a dotenv file")

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(o),
		newRenderCmd(o),
		newDeployCmd(o),
		newListCmd(o),
		newGetCmd(o),
		newDeleteCmd(o),
		newStartCmd(o),
		newStopCmd(o),
		newRestartCmd(o),
		newScaleCmd(o),
		newUpdateCmd(o),
		newLogsCmd(o),
		newStatusCmd(o),
		newExecCmd(o),
		newMetricsCmd(o),
	)
	return root, o
}

// loadEnvFile reads BOTFLEET_* settings from a dotenv file. Values only fill
// flags that were not given on the command line.
func (o *options) loadEnvFile(cmd *cobra.Command) error {
	if o.envFile == "" {
		return nil
	}
	values, err := godotenv.Read(o.envFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", o.envFile, err)
	}

	fill := func(flag, key string, dst *string) {
		if v, ok := values[key]; ok && !cmd.Flags().Changed(flag) {
			*dst = v
		}
	}
	fill("server", cli.ServerEnvVar, &o.flags.Server)
	fill("tenant", cli.TenantEnvVar, &o.flags.Tenant)
	fill("admin-token", cli.AdminTokenEnvVar, &o.flags.AdminToken)
	return nil
}

// Execute is the main entry point for the CLI application.
func Execute() {
	root, o := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", cli.DescribeError(err, o.flags.Server))
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var connErr *cli.ConnectionError
	if errors.As(err, &connErr) {
		return ExitCodeUnreachable
	}
	if ce := cli.ClassifyConnectionError(err, ""); ce != nil && ce.Type != cli.ConnectionErrorUnknown {
		return ExitCodeUnreachable
	}

	switch api.KindOf(err) {
	case api.KindValidation:
		return ExitCodeInvalid
	case api.KindNotFound:
		return ExitCodeNotFound
	}
	return ExitCodeError
}
