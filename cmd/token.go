package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the auth token used by the HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()
		fmt.Println(ensureAuthToken())
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
