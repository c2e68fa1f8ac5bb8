package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wpembed/toolscope/internal/utils"
	"github.com/wpembed/toolscope/pkg/snippet"
)

// ideasCmd implements: toolscope ideas <post-id>
var ideasCmd = &cobra.Command{
	Use:   "ideas <post-id>",
	Short: "Suggest interactive tools for a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid post id: %q", args[0])
		}
		flagProvider, _ := cmd.Flags().GetString("provider")

		wp, err := newWordPressClient()
		if err != nil {
			return err
		}
		provider, err := newProvider(flagProvider)
		if err != nil {
			return err
		}

		post, err := wp.GetPost(cmd.Context(), postID)
		if err != nil {
			return err
		}
		utils.Log.Infof("Generating ideas for %q", utils.StripHTML(post.Title))

		pipeline := &snippet.Pipeline{Provider: provider}
		ideas, err := pipeline.Ideas(cmd.Context(), post)
		if err != nil {
			return err
		}
		if len(ideas) == 0 {
			fmt.Println("No tool opportunity found for this post.")
			return nil
		}

		for i, idea := range ideas {
			fmt.Printf("%d. [%s] %s\n   %s\n", i+1, idea.Icon, idea.Title, idea.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ideasCmd)
}
