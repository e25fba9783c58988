package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tsundoku-app/tsundoku/internal/clipboard"
	"github.com/tsundoku-app/tsundoku/internal/core"
	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

var addCmd = &cobra.Command{
	Use:     "add [url]...",
	Aliases: []string{"get"},
	Short:   "Queue chapters or episodes on the running instance",
	Long: `Queue URLs on a running tsundoku instance.

With --kind manga (the default) all URLs are the pages of one chapter.
With --kind anime every URL is a separate episode.`,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		kindFlag, _ := cmd.Flags().GetString("kind")
		title, _ := cmd.Flags().GetString("title")
		source, _ := cmd.Flags().GetString("source")
		output, _ := cmd.Flags().GetString("output")
		batchFile, _ := cmd.Flags().GetString("batch")
		fromClipboard, _ := cmd.Flags().GetBool("clipboard")

		kind, err := download.ParseContentKind(kindFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		urls, err := collectURLs(args, batchFile, fromClipboard)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(urls) == 0 {
			_ = cmd.Help()
			return
		}

		svc := mustService()
		defer func() { _ = svc.Shutdown() }()

		added, err := svc.Add(core.AddRequest{
			Kind:    kind,
			Title:   title,
			Source:  source,
			URLs:    urls,
			DestDir: utils.EnsureAbsPath(output),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, it := range added {
			fmt.Printf("Queued %s [%s]\n", it.Title, utils.ShortID(it.ID))
		}
	},
}

// collectURLs gathers URLs from args, a batch file and the clipboard, and
// rejects anything that is not an http(s) URL.
func collectURLs(args []string, batchFile string, fromClipboard bool) ([]string, error) {
	raw := append([]string(nil), args...)

	if batchFile != "" {
		fileURLs, err := readURLsFromFile(batchFile)
		if err != nil {
			return nil, fmt.Errorf("reading batch file: %w", err)
		}
		raw = append(raw, fileURLs...)
	}

	if fromClipboard {
		clipURLs, err := clipboard.ReadURLs()
		if err != nil {
			return nil, err
		}
		raw = append(raw, clipURLs...)
	}

	v := clipboard.NewValidator()
	urls := make([]string, 0, len(raw))
	for _, r := range raw {
		u, err := v.Validate(r)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringP("kind", "k", string(download.KindManga), "Content kind: manga or anime")
	addCmd.Flags().StringP("title", "t", "", "Chapter or episode title (default: derived from the URL)")
	addCmd.Flags().String("source", "", "Page the URLs were taken from, sent as Referer")
	addCmd.Flags().StringP("output", "o", "", "Output directory")
	addCmd.Flags().StringP("batch", "b", "", "File containing URLs (one per line)")
	addCmd.Flags().BoolP("clipboard", "c", false, "Read URLs from the clipboard")
}
