package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wpembed/toolscope/internal/server"
)

// previewCmd implements: toolscope preview <file>
var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Preview a generated tool in the browser",
	Long: `Serves the tool document in a sandboxed iframe, the same way the shortcode
embeds it. The file is re-read on every refresh, so keep editing and reloading.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tool file not found: %s", path)
		}
		listenAddr, _ := cmd.Flags().GetString("listen")

		s := server.New(filepath.Base(path), func() (string, error) {
			b, err := os.ReadFile(path)
			return string(b), err
		})
		return s.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().String("listen", "127.0.0.1:7400", "HTTP listen address")
}
