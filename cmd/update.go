package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/journal"
)

var (
	updateTitle   string
	updateContent string
	updateMood    string
	updateTags    string
	updateFolder  string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an existing journal entry",
	Long:  `Update fields of an existing journal entry. Only provided fields will be updated; pass an empty value to clear one.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch journal.EntryPatch
		flags := cmd.Flags()
		if flags.Changed("title") {
			patch.Title = &updateTitle
		}
		if flags.Changed("content") {
			patch.Content = &updateContent
		}
		if flags.Changed("mood") {
			patch.Mood = &updateMood
		}
		if flags.Changed("tags") {
			tags := splitTags(updateTags)
			patch.Tags = &tags
		}
		if flags.Changed("folder") {
			patch.FolderID = &updateFolder
		}
		if patch == (journal.EntryPatch{}) {
			return fmt.Errorf("nothing to update; pass at least one of --title, --content, --mood, --tags, --folder")
		}

		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		entry, err := svc.UpdateEntry(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}

		fmt.Printf("Entry '%s' updated successfully\n", entry.Title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "New title")
	updateCmd.Flags().StringVar(&updateContent, "content", "", "New text")
	updateCmd.Flags().StringVar(&updateMood, "mood", "", "New mood")
	updateCmd.Flags().StringVar(&updateTags, "tags", "", "New tags (replaces existing)")
	updateCmd.Flags().StringVar(&updateFolder, "folder", "", "New folder ID")
}
