// Package cmd implements the tinystep CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tinystep/internal/config"
)

var (
	flagConfig  string
	flagUser    string
	flagVerbose bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tinystep",
		Short: "Goal indexing and bite-size task scheduling",
		Long: "tinystep indexes a markdown goals document, infers recurrence rules\n" +
			"for its time-frame categories, and generates small tasks for the\n" +
			"goals that are currently actionable.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ~/.tinystep/config.json5)")
	cmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "user ID (default \"default\")")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(docsCmd())
	cmd.AddCommand(taskCmd())
	cmd.AddCommand(jobsCmd())
	cmd.AddCommand(doctorCmd())
	return cmd
}

// Execute runs the CLI. It is the only entry point main calls.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	} else if cfg, err := config.Load(resolveConfigPath()); err == nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func resolveConfigPath() string {
	if flagConfig != "" {
		return config.ExpandHome(flagConfig)
	}
	return config.DefaultConfigPath()
}

func currentUserID() string {
	return config.NormalizeUserID(flagUser)
}
