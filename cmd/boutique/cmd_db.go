package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/database/seeders"
	"github.com/rituelsdebene/boutique/pkg/database"
	"github.com/rituelsdebene/boutique/pkg/migration"
)

func bootDB() error {
	if err := config.Load(); err != nil {
		return err
	}
	return database.Connect()
}

// boutique migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		defer database.Close()

		n, err := migration.New(database.DB).Output(os.Stdout).Run()
		if err != nil {
			return err
		}
		if n > 0 {
			fmt.Printf("Applied %d migration(s).\n", n)
		}
		return nil
	},
}

// boutique migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		defer database.Close()
		return migration.New(database.DB).Output(os.Stdout).Rollback()
	},
}

// boutique migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		defer database.Close()
		return migration.New(database.DB).Output(os.Stdout).Status()
	},
}

// boutique seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed categories, Colissimo brackets and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		defer database.Close()
		return seeders.RunAll(database.DB, os.Stdout)
	},
}
