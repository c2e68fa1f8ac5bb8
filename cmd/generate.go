package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wpembed/toolscope/internal/utils"
	"github.com/wpembed/toolscope/pkg/snippet"
	"github.com/wpembed/toolscope/pkg/wordpress"
)

// generateCmd implements: toolscope generate <post-id>
var generateCmd = &cobra.Command{
	Use:   "generate <post-id>",
	Short: "Generate an interactive tool for a post",
	Long: `Generates a self-contained HTML tool for a post. Without --out the document
streams to stdout as it is produced. With --refresh the tool in the given file
is revised instead of generated from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid post id: %q", args[0])
		}
		flagProvider, _ := cmd.Flags().GetString("provider")
		ideaIndex, _ := cmd.Flags().GetInt("idea")
		outPath, _ := cmd.Flags().GetString("out")
		refreshPath, _ := cmd.Flags().GetString("refresh")
		notes, _ := cmd.Flags().GetString("notes")
		publish, _ := cmd.Flags().GetBool("publish")

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

		// Stream to stdout only when the document is not going to a file;
		// otherwise the progress would corrupt the terminal.
		var onChunk func(string) error
		if outPath == "" && !publish {
			onChunk = func(chunk string) error {
				_, err := os.Stdout.WriteString(chunk)
				return err
			}
		}

		pipeline := &snippet.Pipeline{Provider: provider}
		var doc string
		var toolTitle string

		if refreshPath != "" {
			current, err := os.ReadFile(refreshPath)
			if err != nil {
				return fmt.Errorf("read current tool: %w", err)
			}
			toolTitle = utils.StripHTML(post.Title)
			utils.Log.Infof("Refreshing tool for %q", toolTitle)
			doc, err = pipeline.Refresh(cmd.Context(), post, string(current), notes, onChunk)
			if err != nil {
				return err
			}
		} else {
			ideas, err := pipeline.Ideas(cmd.Context(), post)
			if err != nil {
				return err
			}
			if len(ideas) == 0 {
				return fmt.Errorf("no tool opportunity found for post %d", postID)
			}
			if ideaIndex < 1 || ideaIndex > len(ideas) {
				return fmt.Errorf("--idea %d out of range, post has %d ideas", ideaIndex, len(ideas))
			}
			idea := ideas[ideaIndex-1]
			toolTitle = idea.Title
			utils.Log.Infof("Generating %q for %q", idea.Title, utils.StripHTML(post.Title))
			doc, err = pipeline.Generate(cmd.Context(), post, idea, onChunk)
			if err != nil {
				return err
			}
		}
		if onChunk != nil {
			fmt.Println()
		}

		if outPath != "" {
			if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
				return err
			}
			utils.Log.Infof("Wrote %d bytes to %s", len(doc), outPath)
		}

		if publish {
			toolID, err := wp.CreateTool(cmd.Context(), toolTitle, doc)
			if err != nil {
				return err
			}
			utils.Log.Infof("Created tool %d on the site", toolID)

			updated := wordpress.EmbedShortcode(post.Content, toolID)
			if updated != post.Content {
				if _, err := wp.UpdatePostBody(cmd.Context(), post.ID, updated); err != nil {
					return err
				}
				utils.Log.Infof("Embedded %s into post %d", wordpress.Shortcode(toolID), post.ID)
			} else {
				utils.Log.Infof("Post %d already embeds tool %d", post.ID, toolID)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().Int("idea", 1, "Which suggested idea to build (1-based)")
	generateCmd.Flags().StringP("out", "o", "", "Write the generated document to a file")
	generateCmd.Flags().String("refresh", "", "Revise the tool document in this file instead of generating anew")
	generateCmd.Flags().String("notes", "", "Revision notes for --refresh")
	generateCmd.Flags().Bool("publish", false, "Create the tool on the site and embed its shortcode into the post")
}
