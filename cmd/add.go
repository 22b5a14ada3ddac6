package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/journal"
)

var (
	addTitle   string
	addContent string
	addMood    string
	addTags    string
	addFolder  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a journal entry",
	Long: `Add a new journal entry. Every field is encrypted before it is stored.
Content may be piped on stdin instead of passed with --content.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := runAdd(cmd, openJournal, readBody)
		if err != nil {
			return err
		}
		fmt.Printf("Entry '%s' added (%s)\n", entry.Title, entry.ID)
		return nil
	},
}

// runAdd opens the journal before touching piped stdin so an unlock
// prompt never competes with the entry body
func runAdd(cmd *cobra.Command, open func(*cobra.Command) (*journal.Service, error), body func() (string, error)) (journal.Entry, error) {
	svc, err := open(cmd)
	if err != nil {
		return journal.Entry{}, err
	}

	content := addContent
	if content == "" {
		if content, err = body(); err != nil {
			return journal.Entry{}, err
		}
	}

	return svc.CreateEntry(cmd.Context(), journal.EntryInput{
		Title:    addTitle,
		Content:  content,
		Mood:     addMood,
		Tags:     splitTags(addTags),
		FolderID: addFolder,
	})
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addTitle, "title", "", "Entry title")
	addCmd.Flags().StringVar(&addContent, "content", "", "Entry text")
	addCmd.Flags().StringVar(&addMood, "mood", "", "Mood (Very Happy, Happy, Neutral, Sad, Angry)")
	addCmd.Flags().StringVar(&addTags, "tags", "", "Tags (comma or semicolon separated)")
	addCmd.Flags().StringVar(&addFolder, "folder", "", "Folder ID")
}
