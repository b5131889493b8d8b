package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/naamaleah/CookSmart/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the event store tables",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(&models.Event{}, &models.Snapshot{}); err != nil {
		return err
	}

	log.Info().Msg("Migrations applied")
	return nil
}
