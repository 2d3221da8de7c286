package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EO-DataHub/eodhp-directory-services/api"
	"github.com/EO-DataHub/eodhp-directory-services/api/services"
	"github.com/EO-DataHub/eodhp-directory-services/db"
	"github.com/EO-DataHub/eodhp-directory-services/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateOnStart bool

// @title EODHP Directory Services API
// @version v1
// @description This is the API for the EODHP Directory Services.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for handling API requests",
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config, initialize the store and set up logging
		commonSetUp()
		defer store.Close()

		if migrateOnStart {
			directoryDB, ok := store.(*db.DirectoryDB)
			if !ok {
				log.Fatal().Msg("--migrate requires the sql store backend")
			}
			if err := directoryDB.Migrate(); err != nil {
				log.Fatal().Err(err).Msg("Failed to run migrations")
			}
		}

		// Initialize event publisher
		notifier, err := newNotifier(appCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}
		defer notifier.Close()

		service := &services.Service{
			Config:  appCfg,
			Store:   store,
			Events:  notifier,
			Metrics: metrics.New(),
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           api.NewRouter(service),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown failed")
			}
		}()

		log.Info().Msg(fmt.Sprintf("Server started at %s:%d", host, port))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("could not start server")
		}
		log.Info().Msg("Server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply database migrations before serving")
}
