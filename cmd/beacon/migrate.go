package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/beaconlabs/beacon/internal/config"
	"github.com/beaconlabs/beacon/internal/db"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				dsn, err := migrateDSN(cmd)
				if err != nil {
					return err
				}
				if err := db.MigrateUp(dsn); err != nil {
					return err
				}
				fmt.Println("schema is up to date")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				dsn, err := migrateDSN(cmd)
				if err != nil {
					return err
				}
				m, err := db.NewMigrator(dsn)
				if err != nil {
					return err
				}
				defer m.Close()
				if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Println("rolled back one migration")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				dsn, err := migrateDSN(cmd)
				if err != nil {
					return err
				}
				m, err := db.NewMigrator(dsn)
				if err != nil {
					return err
				}
				defer m.Close()
				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Printf("version: %d dirty: %v\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}

func migrateDSN(cmd *cobra.Command) (string, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Postgres.DSN(), nil
}
