package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/logging"
)

type ServeOptions struct {
	*RootOptions
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until interrupted",
		Long: `Run the HTTP server. Configuration comes from defaults, then the --config
file, then environment variables; --port overrides all of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "listen port (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	log := logging.Init(logging.Options{
		Service: "taskboard",
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cmd.ErrOrStderr(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to initialize application")
		return err
	}
	return a.Run(ctx)
}
