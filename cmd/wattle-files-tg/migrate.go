package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lavrd/wattle-files-tg/internal/repo"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := readConfig(*configPath)
			if err != nil {
				return err
			}
			db, err := repo.OpenDBAndMigrate(cfg.DatabaseFilepath, repo.ModeRWC)
			if err != nil {
				return err
			}
			if err = db.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close database connection")
			}
			log.Info().Str("path", cfg.DatabaseFilepath).Msg("database is up to date")
			return nil
		},
	}
}
