package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-agent-go/internal/config"
)

// version is set at build time.
var version = "0.1.0"

// app carries state shared by all subcommands once flags are parsed.
type app struct {
	envFile   string
	logLevel  string
	model     string
	maxRounds int

	settings config.Settings
	log      *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mcpagent",
		Short: "Model Context Protocol servers and model-driven clients",
		Long: `mcpagent serves example MCP capability servers (weather, sales, blog,
spacenews) and runs clients that connect to them and let a Claude model use
their tools, resources, and prompts.

Settings come from the environment and an optional .env file; flags win.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "Path of the .env file to load")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides MCPAGENT_LOG_LEVEL")
	flags.StringVar(&a.model, "model", "", "Model name or alias, overrides MCPAGENT_MODEL")
	flags.IntVar(&a.maxRounds, "max-rounds", 0, "Model round budget per query, overrides MCPAGENT_MAX_ROUNDS")

	root.AddCommand(
		newServeCommand(a),
		newChatCommand(a),
		newResourcesCommand(a),
		newBlogCommand(a),
		newModelsCommand(a),
	)

	return root
}

// init loads settings and builds the logger. Logs go to stderr because stdout
// carries the protocol stream when serving over stdio.
func (a *app) init(cmd *cobra.Command) error {
	settings, err := config.LoadSettings(a.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if flags.Changed("log-level") {
		settings.LogLevel = a.logLevel
	}

	if flags.Changed("model") {
		settings.Model = a.model
	}

	if flags.Changed("max-rounds") {
		settings.MaxRounds = a.maxRounds
	}

	a.settings = settings
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: settings.SlogLevel(),
	}))

	return nil
}
