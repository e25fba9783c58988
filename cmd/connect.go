package cmd

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"github.com/tsundoku-app/tsundoku/internal/core"
)

var connectCmd = &cobra.Command{
	Use:   "connect [host:port]",
	Short: "Open the TUI against a running tsundoku instance",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()

		var target string
		if len(args) > 0 {
			target = args[0]
		} else {
			port := readActivePort()
			if port == 0 {
				fmt.Fprintln(os.Stderr, "No active tsundoku instance found locally.")
				fmt.Fprintln(os.Stderr, "Usage: tsundoku connect <host:port>")
				os.Exit(1)
			}
			target = fmt.Sprintf("127.0.0.1:%d", port)
		}

		tokenFlag, _ := cmd.Flags().GetString("token")
		token, err := tokenForTarget(target, tokenFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		svc := core.NewRemoteService("http://"+target, token)
		defer func() { _ = svc.Shutdown() }()

		if _, err := svc.Status(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
			os.Exit(1)
		}
		startTUI(svc, settings)
	},
}

// tokenForTarget only falls back to the local token file for loopback targets.
func tokenForTarget(target, flagValue string) (string, error) {
	host, _, err := net.SplitHostPort(target)
	if err != nil {
		host = target
	}
	if host == "127.0.0.1" || host == "localhost" || host == "::1" {
		return resolveToken(flagValue), nil
	}
	if flagValue != "" {
		return flagValue, nil
	}
	if token := os.Getenv("TSUNDOKU_TOKEN"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no token provided; use --token or set TSUNDOKU_TOKEN")
}

func init() {
	connectCmd.Flags().String("token", "", "Bearer token for the remote instance (or set TSUNDOKU_TOKEN)")
	rootCmd.AddCommand(connectCmd)
}
