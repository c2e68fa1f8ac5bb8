package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wpembed/toolscope/internal/utils"
)

// cacheCmd groups score-cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Interact with the local score cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print score cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		count, oldest, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println("The score cache is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "CACHED SCORES\tOLDEST ENTRY\t")
		fmt.Fprintf(w, "%d\t%s\t\n", count, oldest.Format("2006-01-02 15:04"))
		w.Flush()
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		utils.Log.Info("Score cache cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
