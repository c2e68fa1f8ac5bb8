package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd implements: toolscope validate
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configured API key and WordPress connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		flagProvider, _ := cmd.Flags().GetString("provider")

		provider, err := newProvider(flagProvider)
		if err != nil {
			return err
		}
		if provider.Validate(cmd.Context()) {
			fmt.Printf("%s: API key is valid\n", provider.Name())
		} else {
			fmt.Printf("%s: API key is INVALID\n", provider.Name())
		}

		wp, err := newWordPressClient()
		if err != nil {
			// The AI key can be checked without a site configured.
			fmt.Println("wordpress: not configured")
			return nil
		}
		if wp.CheckSetup(cmd.Context()) {
			fmt.Println("wordpress: companion plugin reachable")
		} else {
			fmt.Println("wordpress: companion plugin NOT reachable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
