package cmd

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/mcvu-symposium/ms-go-registration/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back all migrations instead of applying them")
}

func runMigrate(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", cfg.Postgres.MigrationsPath), cfg.Postgres.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize migrations")
	}
	defer m.Close()

	if migrateDown {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && err != migrate.ErrNoChange {
		logrus.WithError(err).Fatal("Migration failed")
	}

	logrus.Info("Migrations applied")
}
