package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wpembed/toolscope/internal/utils"
)

// toolsCmd groups tool management against the site's custom endpoint.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Manage tools stored on the WordPress site",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tools stored on the site",
	RunE: func(cmd *cobra.Command, args []string) error {
		wp, err := newWordPressClient()
		if err != nil {
			return err
		}
		tools, err := wp.ListTools(cmd.Context())
		if err != nil {
			return err
		}
		if len(tools) == 0 {
			fmt.Println("No tools on the site yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCREATED\t")
		for _, t := range tools {
			fmt.Fprintf(w, "%d\t%s\t%s\t\n", t.ID, utils.TruncateRunes(t.Title, 60), t.Created)
		}
		w.Flush()
		return nil
	},
}

var toolsDeleteCmd = &cobra.Command{
	Use:   "delete <tool-id>",
	Short: "Delete a tool from the site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid tool id: %q", args[0])
		}
		wp, err := newWordPressClient()
		if err != nil {
			return err
		}
		if err := wp.DeleteTool(cmd.Context(), toolID); err != nil {
			return err
		}
		utils.Log.Infof("Deleted tool %d", toolID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsDeleteCmd)
}
