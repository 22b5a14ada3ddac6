package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/crypto"
)

var rotateMasterCmd = &cobra.Command{
	Use:   "rotate-master",
	Short: "Change the master password",
	Long: `Change the master password by re-encrypting the credentials bundle under a
new password with a fresh salt and IV. The previous vault file is kept
as a backup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !localStore.Exists() {
			return fmt.Errorf("vault not found. Run 'jotvault init' first")
		}

		currentPassword, err := readPassword("Enter current master password: ")
		if err != nil {
			return err
		}
		bundle, err := importVault(string(currentPassword))
		crypto.Zeroize(currentPassword)
		if err != nil {
			return err
		}

		newPassword, err := readNewPassword("new master password")
		if err != nil {
			return err
		}
		defer crypto.Zeroize(newPassword)

		codec, err := vaultCodec()
		if err != nil {
			return err
		}
		f, err := codec.Export(bundle, string(newPassword))
		if err != nil {
			return err
		}

		backupPath, err := localStore.Backup("pre-rotate")
		if err != nil {
			return fmt.Errorf("failed to back up current vault: %w", err)
		}
		if err := localStore.SaveVaultFile(f); err != nil {
			return fmt.Errorf("failed to save vault: %w", err)
		}

		unlockedBundle = bundle
		if err := sessionMgr.Save(bundle); err != nil {
			logger.Warn("failed to save session", "error", err)
		}

		fmt.Println("Master password rotated successfully")
		fmt.Printf("Previous vault kept at: %s\n", backupPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rotateMasterCmd)
}
