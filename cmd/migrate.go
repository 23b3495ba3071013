package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdfhistory/internal/repository"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db := appConfig.Database
			if err := repository.Migrate(db.Driver, db.MigrationURL()); err != nil {
				return err
			}
			log.Info().Str("driver", db.Driver).Msg("migrations applied")
			return nil
		},
	}
}
