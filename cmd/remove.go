package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/storage"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a journal entry",
	Long:  `Remove a journal entry from the record store by ID.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !removeForce && !confirm(fmt.Sprintf("Remove entry %s?", args[0])) {
			return fmt.Errorf("remove cancelled")
		}

		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		if err := svc.DeleteEntry(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("entry not found: %s", args[0])
			}
			return err
		}

		fmt.Printf("Entry '%s' removed successfully\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Don't ask for confirmation")
}
