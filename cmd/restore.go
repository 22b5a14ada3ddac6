package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/storage"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [backup_path]",
	Short: "Restore the vault from a backup or exported file",
	Long: `Restore your vault from a vault file. The file is decrypted with its
master password before it replaces the current vault.
If no path is provided, lists available backups for selection.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var backupPath string

		if len(args) > 0 {
			backupPath = args[0]
		} else {
			backups, err := localStore.ListBackups()
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}
			if len(backups) == 0 {
				return fmt.Errorf("no backup files found in %s. Create one first with 'jotvault backup'", cfg.BackupDir)
			}

			fmt.Println("Available backups:")
			fmt.Println()
			for i, b := range backups {
				fmt.Printf("  %d. %s\n", i+1, filepath.Base(b.Path))
				fmt.Printf("     Created: %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Printf("     Size: %s\n", formatFileSize(b.Size))
				fmt.Println()
			}

			input, err := readLine("Select backup to restore (enter number)", "")
			if err != nil {
				return err
			}
			selection, err := strconv.Atoi(input)
			if err != nil || selection < 1 || selection > len(backups) {
				return fmt.Errorf("invalid selection: %s", input)
			}

			backupPath = backups[selection-1].Path
			fmt.Printf("Selected: %s\n", filepath.Base(backupPath))
		}

		f, err := storage.ReadVaultFile(backupPath)
		if err != nil {
			return err
		}

		password, err := readPassword("Enter the backup's master password: ")
		if err != nil {
			return err
		}
		defer crypto.Zeroize(password)

		codec, err := vaultCodec()
		if err != nil {
			return err
		}
		bundle, err := codec.Import(f, string(password))
		if err != nil {
			return err
		}

		if localStore.Exists() && confirm("Current vault exists. Create a backup before restoring?") {
			path, err := localStore.Backup("before-restore")
			if err != nil {
				return err
			}
			fmt.Printf("Current vault backed up to: %s\n", path)
		}

		if err := localStore.SaveVaultFile(f); err != nil {
			return err
		}

		unlockedBundle = bundle
		if err := sessionMgr.Save(bundle); err != nil {
			logger.Warn("failed to save session", "error", err)
		}

		fmt.Printf("Vault restored successfully from: %s\n", filepath.Base(backupPath))
		return nil
	},
}

// formatFileSize formats file size in human-readable format
func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
