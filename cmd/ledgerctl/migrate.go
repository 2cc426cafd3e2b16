package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the ledger tables",
	Long: `Applies the gorm schema for quotes, invoices, payments and the audit
log. Columns and indexes are added; nothing is dropped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.db.AutoMigrate(cmd.Context()); err != nil {
			return err
		}
		s.log.Info("Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
