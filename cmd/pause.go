package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause both download queues",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc := mustService()
		defer func() { _ = svc.Shutdown() }()

		if err := svc.Pause(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printStatus(svc)
	},
}

var resumeCmd = &cobra.Command{
	Use:     "resume",
	Aliases: []string{"start"},
	Short:   "Start both download queues",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc := mustService()
		defer func() { _ = svc.Shutdown() }()

		if err := svc.Resume(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printStatus(svc)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every item from both download queues",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc := mustService()
		defer func() { _ = svc.Shutdown() }()

		if err := svc.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cleared download queues.")
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(clearCmd)
}
