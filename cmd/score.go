package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wpembed/toolscope/internal/utils"
	"github.com/wpembed/toolscope/pkg/scoring"
	"github.com/wpembed/toolscope/pkg/storage"
	"github.com/wpembed/toolscope/pkg/wordpress"
)

// scoreCmd implements: toolscope score
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score posts for interactive-tool opportunity",
	RunE: func(cmd *cobra.Command, args []string) error {
		flagProvider, _ := cmd.Flags().GetString("provider")
		pages, _ := cmd.Flags().GetInt("pages")
		force, _ := cmd.Flags().GetBool("force")

		wp, err := newWordPressClient()
		if err != nil {
			return err
		}
		provider, err := newProvider(flagProvider)
		if err != nil {
			return err
		}
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		posts, err := fetchAllPosts(cmd, wp, pages)
		if err != nil {
			return err
		}
		utils.Log.Infof("Fetched %d posts from %s", len(posts), viper.GetString("wordpress.url"))

		cached, err := store.GetValid(cmd.Context())
		if err != nil {
			return err
		}

		titles := map[int]string{}
		var pending []wordpress.Post
		for _, p := range posts {
			titles[p.ID] = utils.StripHTML(p.Title)
			if _, ok := cached[p.ID]; ok && !force {
				continue
			}
			pending = append(pending, p)
		}
		utils.Log.Infof("%d cached, %d to score", len(posts)-len(pending), len(pending))

		orch := &scoring.Orchestrator{Provider: provider, Log: utils.Log}
		err = orch.Score(cmd.Context(), pending, func(updates []scoring.Update) {
			records := make([]storage.Record, 0, len(updates))
			for _, u := range updates {
				records = append(records, storage.Record{
					PostID:    u.PostID,
					Score:     u.Score,
					Rationale: u.Rationale,
					ScoredAt:  u.ScoredAt,
				})
			}
			if err := store.Put(cmd.Context(), records); err != nil {
				utils.Log.Warnf("Failed to persist %d records: %v", len(records), err)
			}
			utils.Log.Infof("Scored %d more posts", len(updates))
		})
		if err != nil {
			return err
		}

		// Re-read so fresh and cached scores print together.
		all, err := store.GetValid(cmd.Context())
		if err != nil {
			return err
		}

		var rows []storage.Record
		for id := range titles {
			if r, ok := all[id]; ok {
				rows = append(rows, r)
			}
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Score != rows[j].Score {
				return rows[i].Score > rows[j].Score
			}
			return rows[i].PostID < rows[j].PostID
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSCORE\tTITLE\tRATIONALE\t")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t\n",
				r.PostID, r.Score,
				utils.TruncateRunes(titles[r.PostID], 60),
				utils.TruncateRunes(r.Rationale, 80))
		}
		w.Flush()

		return nil
	},
}

// fetchAllPosts pages through the posts endpoint. maxPages 0 means all
// pages the site reports.
func fetchAllPosts(cmd *cobra.Command, wp *wordpress.Client, maxPages int) ([]wordpress.Post, error) {
	var all []wordpress.Post
	page := 1
	for {
		posts, totalPages, err := wp.FetchPosts(cmd.Context(), page)
		if err != nil {
			return nil, err
		}
		all = append(all, posts...)
		if page >= totalPages || (maxPages > 0 && page >= maxPages) {
			return all, nil
		}
		page++
	}
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().Int("pages", 0, "Max pages of posts to fetch (0 = all)")
	scoreCmd.Flags().Bool("force", false, "Re-score posts even when a valid cached score exists")
}
