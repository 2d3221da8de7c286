package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/EO-DataHub/eodhp-directory-services/db"
	"github.com/EO-DataHub/eodhp-directory-services/internal/appconfig"
	"github.com/EO-DataHub/eodhp-directory-services/internal/awsclient"
	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/internal/events"
	"github.com/rs/zerolog/log"
)

var (
	appCfg *appconfig.Config
	store  directory.Store
)

// commonSetUp sets the log level, loads the config and opens the configured
// directory store. Any failure is fatal.
func commonSetUp() {
	setLogging(logLevel)

	var err error
	appCfg, err = appconfig.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err = openStore(context.Background(), appCfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", appCfg.Store.Backend).Msg("Failed to initialize directory store")
	}
}

func openStore(ctx context.Context, cfg *appconfig.Config) (directory.Store, error) {
	if cfg.Store.Backend != appconfig.BackendSQL {
		log.Info().Msg("Using in-memory directory store")
		return directory.NewMemoryStore(), nil
	}
	return openDatabase(ctx, cfg)
}

// openDatabase connects to the SQL backend. When a secret name is configured
// and DATABASE_URL is unset, the connection string comes from Secrets Manager.
func openDatabase(ctx context.Context, cfg *appconfig.Config) (*db.DirectoryDB, error) {
	source := cfg.Database.Source

	if cfg.Database.SecretName != "" && os.Getenv("DATABASE_URL") == "" {
		awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}

		source, err = awsclient.ResolveDatabaseSource(ctx, awsclient.NewSecretsManagerClient(awsCfg), cfg.Database.SecretName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database secret: %w", err)
		}
		log.Info().Str("secret", cfg.Database.SecretName).Msg("Database source resolved from Secrets Manager")
	}

	logger := log.With().Str("component", "db").Str("driver", cfg.Database.Driver).Logger()
	return db.NewDirectoryDB(cfg.Database.Driver, source, &logger)
}

// newNotifier returns the Pulsar publisher, or a no-op when no topic is set.
func newNotifier(cfg *appconfig.Config) (events.Notifier, error) {
	if cfg.Pulsar.URL == "" || cfg.Pulsar.TopicProducer == "" {
		log.Warn().Msg("Pulsar is not configured, directory events will not be published")
		return events.NopNotifier{}, nil
	}
	return events.NewEventPublisher(cfg.Pulsar.URL, cfg.Pulsar.TopicProducer)
}
