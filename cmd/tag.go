package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tagColor string

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		t, err := svc.CreateTag(cmd.Context(), args[0], tagColor)
		if err != nil {
			return err
		}

		fmt.Printf("Tag '%s' created (%s)\n", t.Name, t.ID)
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		tags, listErr := svc.ListTags(cmd.Context())
		if tags == nil && listErr != nil {
			return listErr
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOLOR")
		for _, t := range tags {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.Color)
		}
		w.Flush()

		if listErr != nil {
			warnPartial(cmd.Context(), "tags", listErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.AddCommand(tagAddCmd, tagListCmd)
	tagAddCmd.Flags().StringVar(&tagColor, "color", "", "Tag color, e.g. #4a90d9")
}
