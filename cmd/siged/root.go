package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"siged/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "siged",
		Short: "Siged is a municipal document registry with deduplicated file storage",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newSeedCmd(cfg),
		newInfoCmd(cfg, &jsonOutput),
		newCreateCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newUpdateCmd(cfg, &jsonOutput),
		newTrashCmd(cfg, &jsonOutput),
		newRestoreCmd(cfg, &jsonOutput),
		newPurgeCmd(cfg),
		newDownloadCmd(cfg),
		newContainerCmd(cfg, &jsonOutput),
		newCatalogCmd(cfg, &jsonOutput),
		newExportCmd(cfg),
		newGCCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}
