package cmd

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"
	"github.com/wpembed/toolscope/internal/utils"
)

// reportCmd implements: toolscope report
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an HTML chart of cached opportunity scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")
		limit, _ := cmd.Flags().GetInt("top")

		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.TopScores(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No cached scores yet. Run 'toolscope score' first.")
			return nil
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title:    "Tool opportunity scores",
				Subtitle: fmt.Sprintf("Top %d cached posts", len(records)),
			}),
		)

		var x []string
		var y []opts.BarData
		for _, r := range records {
			x = append(x, fmt.Sprintf("post %d", r.PostID))
			y = append(y, opts.BarData{Value: r.Score})
		}
		bar.SetXAxis(x).AddSeries("Score", y)

		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := bar.Render(f); err != nil {
			return err
		}
		utils.Log.Infof("Wrote report to %s", outPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("out", "o", "toolscope-report.html", "Output HTML file")
	reportCmd.Flags().Int("top", 25, "How many posts to include, best first")
}
