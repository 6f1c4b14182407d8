package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load and run every module in the module directory",
		Long: `Run loads every module package in the module directory and starts it
(unless deferStart is set). With watch enabled, packages added to or removed
from the directory are loaded and unloaded while the host runs. With an API
address configured, the admin API is served. On SIGINT or SIGTERM all modules
are unloaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := o.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			h, err := newHost(cfg, logger, o.entryPoints)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := h.start(ctx); err != nil {
				_ = h.shutdown(context.Background())
				return err
			}
			serveErr := h.serve(ctx)

			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := h.shutdown(shutdownCtx); err != nil {
				logger.Error("Shutdown finished with errors", "error", err)
			}
			return serveErr
		},
	}
}
