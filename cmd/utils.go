package cmd

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsundoku-app/tsundoku/internal/config"
	"github.com/tsundoku-app/tsundoku/internal/core"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

const defaultPort = 1717

func portPath() string {
	return filepath.Join(config.GetRuntimeDir(), "port")
}

// readActivePort reads the port from the port file
func readActivePort() int {
	data, err := os.ReadFile(portPath())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return port
}

// saveActivePort writes the active port for CLI discovery
func saveActivePort(port int) {
	if err := os.MkdirAll(config.GetRuntimeDir(), 0o755); err != nil {
		utils.Debug("Error creating runtime dir: %v", err)
	}
	if err := os.WriteFile(portPath(), []byte(strconv.Itoa(port)), 0o644); err != nil {
		utils.Debug("Error writing port file: %v", err)
	}
	utils.Debug("HTTP server listening on port %d", port)
}

// removeActivePort cleans up the port file on exit
func removeActivePort() {
	if err := os.Remove(portPath()); err != nil && !os.IsNotExist(err) {
		utils.Debug("Error removing port file: %v", err)
	}
}

// findAvailablePort tries ports starting from 'start' until one is available
func findAvailablePort(start int) (int, net.Listener) {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return port, ln
		}
	}
	return 0, nil
}

// readURLsFromFile reads URLs from a file, one per line
func readURLsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	return urls, scanner.Err()
}

// resolveToken picks the API token: flag, then TSUNDOKU_TOKEN, then the
// local token file.
func resolveToken(flagValue string) string {
	if token := strings.TrimSpace(flagValue); token != "" {
		return token
	}
	if token := strings.TrimSpace(os.Getenv("TSUNDOKU_TOKEN")); token != "" {
		return token
	}
	return ensureAuthToken()
}

// resolveService connects to the running instance found through the port file.
func resolveService() (core.Service, error) {
	port := readActivePort()
	if port == 0 {
		return nil, fmt.Errorf("%w. Start it with 'tsundoku' and try again", core.ErrNotRunning)
	}
	return core.NewRemoteService(fmt.Sprintf("http://127.0.0.1:%d", port), resolveToken("")), nil
}

// resolveItemID resolves a partial ID (prefix) to the full ID of a queued item.
// The input is returned unchanged when nothing matches.
func resolveItemID(svc core.Service, partialID string) (string, error) {
	if len(partialID) >= 32 {
		return partialID, nil
	}
	items, err := svc.Queue()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, it := range items {
		if strings.HasPrefix(it.ID, partialID) {
			matches = append(matches, it.ID)
		}
	}
	switch len(matches) {
	case 0:
		return partialID, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous ID prefix '%s' matches %d items", partialID, len(matches))
	}
}

// mustService is resolveService for commands: it exits on failure.
func mustService() core.Service {
	svc, err := resolveService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return svc
}
