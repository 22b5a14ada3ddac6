package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the vault",
	Long:  `Unlock the vault by providing the master password. The decrypted credentials are cached for the session timeout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionMgr.Active() {
			fmt.Println("Vault is already unlocked")
			return nil
		}

		if err := unlockWithPrompt(); err != nil {
			return err
		}

		fmt.Println("Vault unlocked successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
}
