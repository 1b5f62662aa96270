// Package cli is the taskboard command line: it runs the server and talks
// to a running one.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/client"
	"taskboard/internal/logging"
	"taskboard/internal/utils"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Server     string
	LogLevel   string
}

// NewRootCommand creates the taskboard root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "taskboard",
		Short: "Personal task, note and category board",
		Long: `taskboard serves the task board REST API under /api and manages its
data from the command line.

Examples:
  taskboard serve --config taskboard.yaml
  taskboard tasks list --status pending
  taskboard tasks create --data '{"title":"Write report","priority":"high"}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (.yaml, .yml or .toml)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", utils.GetEnv("TASKBOARD_SERVER", "http://localhost:3000"), "base URL of a running server")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "client log level")

	cmd.AddCommand(NewServeCommand(opts))
	for _, r := range resources() {
		cmd.AddCommand(newResourceCommand(opts, r))
	}
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func (o *RootOptions) logger(cmd *cobra.Command) *logrus.Logger {
	return logging.Init(logging.Options{
		Service: "taskboard-cli",
		Level:   o.LogLevel,
		Format:  "text",
		Output:  cmd.ErrOrStderr(),
	})
}

func (o *RootOptions) api(cmd *cobra.Command) *client.APIService {
	return client.NewAPIService(o.Server, nil, o.logger(cmd))
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
