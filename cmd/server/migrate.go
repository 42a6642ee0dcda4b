package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dairy-service/internal/infra/mysql"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver != "mysql" {
			return fmt.Errorf("migrate requires database.driver=mysql, got %q", cfg.Database.Driver)
		}
		dbCfg := cfg.Database
		dbCfg.AutoMigrate = false
		db, err := mysql.Open(dbCfg)
		if err != nil {
			return fmt.Errorf("db: connect: %w", err)
		}
		defer mysql.Close(db)

		if err := mysql.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Infow("schema migrated", "database", cfg.Database.Name)
		return nil
	},
}
