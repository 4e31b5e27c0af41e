package cmd

import (
	"example.com/alumni/services/events/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		conn, err := database.Connect(cfg.DB)
		if err != nil {
			return err
		}
		defer conn.Close()

		return database.Migrate(conn.Write)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
