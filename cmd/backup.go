package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupLabel string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a backup of the vault file",
	Long: `Copy the encrypted vault file into the backup directory. The copy stays
protected by the current master password.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := localStore.Backup(backupLabel)
		if err != nil {
			return err
		}

		fmt.Printf("Backup created at: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringVar(&backupLabel, "label", "", "Label added to the backup file name")
}
