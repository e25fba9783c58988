package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

var rmCmd = &cobra.Command{
	Use:     "rm <ID>",
	Aliases: []string{"remove"},
	Short:   "Remove a queued chapter or episode",
	Long:    `Remove an item by its ID or an unambiguous ID prefix. An item being downloaded is cancelled.`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc := mustService()
		defer func() { _ = svc.Shutdown() }()

		id, err := resolveItemID(svc, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := svc.Remove(id); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed %s\n", utils.ShortID(id))
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
