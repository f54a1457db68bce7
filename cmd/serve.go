package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tinystep/internal/config"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler: execute cron jobs and watch the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := a.newCronService(ctx)
	if err := svc.Start(); err != nil {
		return fmt.Errorf("start cron service: %w", err)
	}
	defer svc.Stop()

	// Hot reload: the parts of config that take effect without a rebuild.
	watcher, err := config.NewWatcher(resolveConfigPath())
	if err == nil {
		watcher.OnChange(func(cfg *config.Config) {
			a.cfg = cfg
			a.svc.SetExploreProb(cfg.Schedule.ExploreProb)
			slog.Info("config applied", "exploreProb", cfg.Schedule.ExploreProb)
		})
		if err := watcher.Start(); err != nil {
			slog.Warn("config watcher not started", "error", err)
		} else {
			defer watcher.Stop()
		}
	} else {
		slog.Warn("config watcher unavailable", "error", err)
	}

	slog.Info("tinystep serving", "dataDir", a.cfg.ResolvedDataDir())
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}
