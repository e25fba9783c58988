package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tsundoku-app/tsundoku/internal/core"
	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/state"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished downloads, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()
		defer state.CloseDB()

		limit, _ := cmd.Flags().GetInt("limit")
		clearAll, _ := cmd.Flags().GetBool("clear")

		if clearAll {
			n, err := state.ClearHistory()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error clearing history: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Removed %d history entries.\n", n)
			return
		}

		entries, err := loadHistory(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printHistory(os.Stdout, entries)
	},
}

// loadHistory asks the running instance, or reads the database directly
// when none is running.
func loadHistory(limit int) ([]download.HistoryEntry, error) {
	svc, err := resolveService()
	if err == nil {
		defer func() { _ = svc.Shutdown() }()
		entries, err := svc.History(limit)
		if !errors.Is(err, core.ErrNotRunning) {
			return entries, err
		}
		utils.Debug("Stale port file, reading history from database")
	}
	return state.ListHistory(limit)
}

func printHistory(w io.Writer, entries []download.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No finished downloads.")
		return
	}
	for _, e := range entries {
		finished := time.Unix(e.CompletedAt, 0).Format("2006-01-02 15:04")
		took := (time.Duration(e.TimeTaken) * time.Millisecond).Round(time.Second)
		fmt.Fprintf(w, "%s  %-5s  %s (%d files, %s)\n", finished, e.Kind, e.Title, e.Pages, took)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().Bool("clear", false, "Delete all history entries")
}
