package cmd

import (
	"context"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/internal/manifest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	manifestPath string
	prune        bool
	verifyOnly   bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Bring the directory in line with a YAML manifest of users and groups",
	Long: `Creates the groups and users declared in the manifest, updates existing users,
applies explicit group member lists and, with --prune, deletes anything not declared.
With --verify the store is only checked for one-sided memberships.`,
	Run: func(cmd *cobra.Command, args []string) {

		// Load the config, initialize the store and set up logging
		commonSetUp()
		defer store.Close()

		ctx := log.Logger.WithContext(context.Background())

		if !verifyOnly {
			if manifestPath == "" {
				log.Fatal().Msg("--manifest is required unless --verify is set")
			}

			m, err := manifest.Load(manifestPath)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load manifest")
			}

			log.Info().Str("manifest", manifestPath).Msg("Starting reconciliation process...")
			report, err := manifest.Apply(ctx, store, m, prune)
			if err != nil {
				log.Fatal().Err(err).Interface("report", report).Msg("Reconciliation failed")
			}
			log.Info().Interface("report", report).Msg("Reconciliation complete")
		}

		if err := directory.CheckConsistency(ctx, store); err != nil {
			log.Fatal().Err(err).Msg("Directory memberships are inconsistent")
		}
		log.Info().Msg("Directory memberships are consistent")
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the directory manifest")
	reconcileCmd.Flags().BoolVar(&prune, "prune", false, "delete users and groups missing from the manifest")
	reconcileCmd.Flags().BoolVar(&verifyOnly, "verify", false, "only check membership consistency")
}
