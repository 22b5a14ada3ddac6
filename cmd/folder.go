package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var folderColor string

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		f, err := svc.CreateFolder(cmd.Context(), args[0], folderColor)
		if err != nil {
			return err
		}

		fmt.Printf("Folder '%s' created (%s)\n", f.Name, f.ID)
		return nil
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openJournal(cmd)
		if err != nil {
			return err
		}

		folders, listErr := svc.ListFolders(cmd.Context())
		if folders == nil && listErr != nil {
			return listErr
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOLOR")
		for _, f := range folders {
			fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Name, f.Color)
		}
		w.Flush()

		if listErr != nil {
			warnPartial(cmd.Context(), "folders", listErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(folderCmd)
	folderCmd.AddCommand(folderAddCmd, folderListCmd)
	folderAddCmd.Flags().StringVar(&folderColor, "color", "", "Folder color, e.g. #4a90d9")
}
