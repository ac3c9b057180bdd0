package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lavrd/wattle-files-tg/internal/config"
)

func main() {
	log.Logger = log.
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Caller().Logger().
		Level(zerolog.InfoLevel)

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Println("failed to execute command:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	serveCmd := newServeCmd(&configPath)
	cmd := &cobra.Command{
		Use:               "wattle-files-tg",
		Short:             "Telegram bot with files of ANU Wattle courses",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		// Serve is the default command.
		RunE: serveCmd.RunE,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "config file path")
	cmd.AddCommand(serveCmd, newMigrateCmd(&configPath))
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Register webhook and handle updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func readConfig(path string) (*config.Config, error) {
	cfg, err := config.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if cfg.Verbose {
		log.Logger = log.Level(zerolog.TraceLevel)
	}
	return cfg, nil
}
