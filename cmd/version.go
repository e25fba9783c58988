package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tsundoku-app/tsundoku/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and optionally check for updates",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tsundoku %s (built %s)\n", Version, BuildTime)

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), version.RequestTimeout)
		defer cancel()

		info, err := version.NewChecker().Check(ctx, Version)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		case info == nil:
			fmt.Println("Development build, skipping update check.")
		case info.UpdateAvailable:
			fmt.Printf("Update available: %s\n%s\n", info.LatestVersion, info.ReleaseURL)
		default:
			fmt.Println("You are running the latest version.")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("check", false, "Check GitHub for a newer release")
}
