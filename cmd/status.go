package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tsundoku-app/tsundoku/internal/core"
	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the combined queue status",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc := mustService()
		defer func() { _ = svc.Shutdown() }()
		printStatus(svc)
	},
}

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"l", "queue"},
	Short:   "List queued chapters and episodes",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc := mustService()
		defer func() { _ = svc.Shutdown() }()

		items, err := svc.Queue()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printQueue(os.Stdout, items)
	},
}

func printStatus(svc core.Service) {
	st, err := svc.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Queue: %s\n", describeStatus(st))
}

func printQueue(w io.Writer, items []download.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-5s  %-11s  %-7s  %s\n", "ID", "KIND", "STATE", "FILES", "TITLE")
	for _, it := range items {
		files := fmt.Sprintf("%d/%d", it.PagesDone, it.Pages())
		fmt.Fprintf(w, "%-8s  %-5s  %-11s  %-7s  %s\n", utils.ShortID(it.ID), it.Kind, it.State, files, it.Title)
		if it.Error != "" {
			fmt.Fprintf(w, "%-8s  error: %s\n", "", it.Error)
		}
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lsCmd)
}
