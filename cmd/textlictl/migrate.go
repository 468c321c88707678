package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

type migrator interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
}

// test seams
var (
	openDB      = repomanager.OpenDB
	newMigrator = func() migrator { return repomanager.NewPostgresRepositoryManager() }
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context(), cmd)
	},
}

func runMigrate(ctx context.Context, cmd *cobra.Command) error {
	if dsn == "" {
		return fmt.Errorf("no DSN given: use --dsn or TEXTLI_DATABASE_DSN")
	}

	db, err := openDB(ctx, dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	if err := newMigrator().RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("error applying migrations: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
