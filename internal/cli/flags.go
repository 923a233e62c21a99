package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"botfleet/internal/client"
)

// Environment variables that provide flag defaults.
const (
	ServerEnvVar     = "BOTFLEET_SERVER"
	TenantEnvVar     = "BOTFLEET_TENANT"
	AdminTokenEnvVar = "BOTFLEET_ADMIN_TOKEN"
)

const defaultServer = "http://localhost:8080"

// CommandFlags holds the flag values shared by every command that talks to a
// botfleet server.
type CommandFlags struct {
	// Server is the base URL of the lifecycle API
	Server string
	// Tenant scopes calls to one owner; empty means administrative calls
	Tenant string
	// AdminToken authenticates administrative calls
	AdminToken string
	// OutputFormat specifies the desired output format (table, wide, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Timeout bounds every API request
	Timeout time.Duration
}

// RegisterCommonFlags registers the persistent flags on the root command.
//
// The registered flags are:
//   - --server: Lifecycle API base URL (env: BOTFLEET_SERVER)
//   - --tenant: Tenant id sent as X-Tenant-ID (env: BOTFLEET_TENANT)
//   - --admin-token: Token for admin routes (env: BOTFLEET_ADMIN_TOKEN)
//   - --output/-o: Output format (table, wide, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --timeout: Request timeout
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	server := os.Getenv(ServerEnvVar)
	if server == "" {
		server = defaultServer
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.Server, "server", server, "Lifecycle API base URL (env: BOTFLEET_SERVER)")
	pf.StringVar(&flags.Tenant, "tenant", os.Getenv(TenantEnvVar), "Tenant id sent as X-Tenant-ID (env: BOTFLEET_TENANT)")
	pf.StringVar(&flags.AdminToken, "admin-token", os.Getenv(AdminTokenEnvVar), "Token for the admin API (env: BOTFLEET_ADMIN_TOKEN)")
	pf.StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, wide, json, yaml)")
	pf.BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	pf.DurationVar(&flags.Timeout, "timeout", 60*time.Second, "Timeout of a single API request")
}

// NewClient creates an API client from the flags.
func (f *CommandFlags) NewClient() *client.Client {
	return client.New(client.Config{
		BaseURL:    f.Server,
		AdminToken: f.AdminToken,
		Timeout:    f.Timeout,
		Retries:    2,
	})
}

// Printer creates a Printer writing to stdout.
func (f *CommandFlags) Printer() (*Printer, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return nil, err
	}
	return &Printer{
		Format:    OutputFormat(f.OutputFormat),
		NoHeaders: f.NoHeaders,
		Out:       os.Stdout,
	}, nil
}
