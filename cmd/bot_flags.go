package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"botfleet/internal/api"
	"botfleet/internal/cli"
	"botfleet/internal/client"
)

// botFlags are the flags that describe a bot, shared by deploy and render.
type botFlags struct {
	language     string
	version      string
	image        string
	env          []string
	envFile      string
	codePath     string
	startCommand string
	workflowID   string
	owner        string
	port         int32
}

// register adds the bot flags to cmd. Creating commands also get the
// owner and port flags and require a language.
func (f *botFlags) register(cmd *cobra.Command, creating bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.language, "language", "l", "", "Bot language (python, node, go, ...)")
	fs.StringVar(&f.version, "version", "", "Language version; the catalog default when empty")
	fs.StringVar(&f.image, "image", "", "Container image, overrides the language catalog")
	fs.StringArrayVarP(&f.env, "env", "e", nil, "Environment variable KEY=VALUE (repeatable)")
	fs.StringVar(&f.envFile, "env-file", "", "Read environment variables from a dotenv file")
	fs.StringVar(&f.codePath, "code", "", "Code bundle (.zip or .tar.gz) to unpack into the bot workspace")
	fs.StringVar(&f.startCommand, "start-command", "", "Command that starts the bot")
	fs.StringVar(&f.workflowID, "workflow", "", "Workflow id label")
	if !creating {
		return
	}
	fs.StringVar(&f.owner, "owner", "", "Owner of the bot when deploying through the admin API")
	fs.Int32Var(&f.port, "port", 0, "Container port to expose through a service")
	_ = cmd.MarkFlagRequired("language")
}

// config assembles the bot configuration for name.
func (f *botFlags) config(name string) (api.BotConfig, error) {
	env, err := parseEnv(f.env, f.envFile)
	if err != nil {
		return api.BotConfig{}, err
	}
	code, err := readCode(f.codePath)
	if err != nil {
		return api.BotConfig{}, err
	}

	cfg := api.BotConfig{
		Name:         name,
		Language:     f.language,
		Version:      f.version,
		Image:        f.image,
		UserID:       f.owner,
		WorkflowID:   f.workflowID,
		StartCommand: f.startCommand,
		Code:         code,
		Env:          env,
	}
	if f.port != 0 {
		port := f.port
		cfg.Port = &port
	}
	return cfg, nil
}

// parseEnv merges a dotenv file with KEY=VALUE pairs. Pairs win over the
// file; file entries are sorted by name since dotenv maps have no order.
func parseEnv(pairs []string, file string) ([]api.EnvVar, error) {
	var env []api.EnvVar
	index := map[string]int{}
	set := func(name, value string) {
		if i, ok := index[name]; ok {
			env[i].Value = value
			return
		}
		index[name] = len(env)
		env = append(env, api.EnvVar{Name: name, Value: value})
	}

	if file != "" {
		values, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			set(name, values[name])
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, api.NewValidationError("env", fmt.Sprintf("%q is not KEY=VALUE", pair))
		}
		set(name, value)
	}
	return env, nil
}

func readCode(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read code bundle: %w", err)
	}
	return data, nil
}

func (o *options) client() *client.Client {
	return o.flags.NewClient()
}

func (o *options) printer() (*cli.Printer, error) {
	p, err := o.flags.Printer()
	if err != nil {
		return nil, err
	}
	p.Out = o.out
	return p, nil
}

func (o *options) tenant() string {
	return o.flags.Tenant
}
