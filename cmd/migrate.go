package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Encrypt legacy plaintext fields",
	Long: `Encrypt every field still stored as plaintext in the record store.
Fields that are already encrypted are skipped, so the command can be run
more than once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		report, err := svc.Migrate(cmd.Context())
		if err != nil {
			return fmt.Errorf("migration stopped after %d records: %w", report.Total(), err)
		}

		if report.Total() == 0 {
			fmt.Println("Nothing to migrate; all fields are already encrypted")
			return nil
		}
		fmt.Printf("Migrated %d entries, %d folders, %d tags\n", report.Entries, report.Folders, report.Tags)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
