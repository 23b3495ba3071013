package main

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdfhistory/internal/config"
)

var (
	configPath string
	appConfig  *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "pdfhistory",
	Short:         "Version history, branch grouping and thumbnail cache for PDF files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfig(configPath)
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		if err := setupLogger(cfg.Log); err != nil {
			return err
		}
		appConfig = cfg
		return nil
	},
}

func setupLogger(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return nil
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".app.env", "path to the config file")
	rootCmd.AddCommand(newServeCommand(), newMigrateCommand(), newBranchesCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
