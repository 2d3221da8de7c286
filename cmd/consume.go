package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/EO-DataHub/eodhp-directory-services/internal/appconfig"
	"github.com/EO-DataHub/eodhp-directory-services/internal/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run the Pulsar consumer and log an audit trail of directory events",
	Run: func(cmd *cobra.Command, args []string) {

		// The consumer only needs the Pulsar settings
		setLogging(logLevel)

		var err error
		appCfg, err = appconfig.LoadConfig(configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}

		topic := appCfg.Pulsar.TopicConsumer
		if topic == "" {
			topic = appCfg.Pulsar.TopicProducer
		}

		// Initialize event consumer
		consumer, err := events.NewEventConsumer(appCfg.Pulsar.URL, topic, appCfg.Pulsar.Subscription)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event consumer")
		}
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = log.Logger.WithContext(ctx)

		log.Info().Str("topic", topic).Msg("Waiting for directory events")

		if err := consumer.Consume(ctx, logEvent); err != nil {
			log.Fatal().Err(err).Msg("Consumer exited")
		}
		log.Info().Msg("Consumer stopped")
	},
}

// logEvent writes one audit line per directory event.
func logEvent(ctx context.Context, event events.DirectoryEvent) error {
	zerolog.Ctx(ctx).Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.Type).
		Str("subject", event.Subject).
		Strs("memberships", event.Memberships).
		Int64("timestamp", event.Timestamp).
		Msg("Directory event")
	return nil
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
