package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jotvault/jotvault/internal/journal"
	"github.com/jotvault/jotvault/internal/mood"
)

var listFolder string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries",
	Long:  `List journal entries with their title, mood and tags (without content).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		entries, listErr := svc.ListEntries(cmd.Context(), journal.ListOptions{FolderID: listFolder})
		if entries == nil && listErr != nil {
			return listErr
		}

		if len(entries) == 0 {
			fmt.Println("No entries found")
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tMOOD\tTAGS\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.ID,
					e.Title,
					formatMood(e.Mood),
					strings.Join(e.Tags, ", "),
					e.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			w.Flush()
		}

		if listErr != nil {
			warnPartial(cmd.Context(), "entries", listErr)
		}
		return nil
	},
}

// warnPartial reports rows of a listing that could not be decrypted
func warnPartial(ctx context.Context, what string, err error) {
	logger.WarnContext(ctx, "some "+what+" could not be decrypted", "error", err)
}

// formatMood renders a decoded mood; values outside the vocabulary are
// shown as stored with a marker
func formatMood(d mood.Decoded) string {
	switch {
	case !d.Present():
		return ""
	case d.Known:
		return d.Mood.Emoji + " " + d.Label
	default:
		return d.Label + " (?)"
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listFolder, "folder", "", "Only list entries in this folder")
}
