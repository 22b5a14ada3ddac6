package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a journal entry",
	Long:  `Decrypt and display a journal entry by ID.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		entry, err := svc.GetEntry(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Title: %s\n", entry.Title)
		if entry.Mood.Present() {
			fmt.Printf("Mood: %s\n", formatMood(entry.Mood))
		}
		if len(entry.Tags) > 0 {
			fmt.Printf("Tags: %s\n", strings.Join(entry.Tags, ", "))
		}
		if entry.FolderID != "" {
			fmt.Printf("Folder: %s\n", entry.FolderID)
		}
		fmt.Printf("Created: %s\n", entry.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated: %s\n", entry.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		if entry.Content != "" {
			fmt.Println()
			fmt.Println(entry.Content)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
