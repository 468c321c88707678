package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var dsn string

var rootCmd = &cobra.Command{
	Use:           "textlictl",
	Short:         "Operator tool for the textli server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dsn == "" {
			dsn = os.Getenv("TEXTLI_DATABASE_DSN")
		}
	},
}

func init() {
	_ = godotenv.Load()
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres DSN (default $TEXTLI_DATABASE_DSN)")
}
