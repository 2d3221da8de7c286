package cmd

import (
	"context"

	"github.com/EO-DataHub/eodhp-directory-services/internal/appconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "init-db-migrate",
	Short: "Initialize tables and run database migrations",
	Long:  `This job ensures the directory tables exist and then runs goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Set the log level
		setLogging(logLevel)

		// Load the config file
		var err error
		appCfg, err = appconfig.LoadConfig(configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}

		if appCfg.Store.Backend != appconfig.BackendSQL {
			log.Fatal().Str("backend", appCfg.Store.Backend).Msg("migrations require the sql store backend")
		}

		directoryDB, err := openDatabase(context.Background(), appCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize DirectoryDB")
		}

		// Set up the database
		defer directoryDB.Close()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := directoryDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
