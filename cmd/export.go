package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/storage"
)

var exportPassword bool

var exportCmd = &cobra.Command{
	Use:   "export <output_path>",
	Short: "Write a portable copy of the vault file",
	Long: `Write the vault file to another location, for example removable media.

With --new-password the credentials are re-encrypted under a separate
password for the copy; the local vault is not changed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath := args[0]
		if _, err := os.Stat(outputPath); err == nil {
			if !confirm(fmt.Sprintf("%s exists. Overwrite?", outputPath)) {
				return fmt.Errorf("export cancelled")
			}
		}

		if !exportPassword {
			f, err := localStore.LoadVaultFile()
			if err != nil {
				return err
			}
			if err := storage.WriteVaultFile(outputPath, f); err != nil {
				return err
			}
			fmt.Printf("Vault exported to: %s\n", outputPath)
			return nil
		}

		if err := ensureUnlocked(cmd); err != nil {
			return err
		}
		password, err := readNewPassword("password for the exported copy")
		if err != nil {
			return err
		}
		defer crypto.Zeroize(password)

		codec, err := vaultCodec()
		if err != nil {
			return err
		}
		f, err := codec.Export(unlockedBundle, string(password))
		if err != nil {
			return err
		}
		if err := storage.WriteVaultFile(outputPath, f); err != nil {
			return err
		}

		fmt.Printf("Vault exported to: %s (protected by the new password)\n", outputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().BoolVar(&exportPassword, "new-password", false, "Protect the exported copy with a different password")
}
