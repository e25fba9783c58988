package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tsundoku-app/tsundoku/internal/config"
	"github.com/tsundoku-app/tsundoku/internal/core"
	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/more"
	"github.com/tsundoku-app/tsundoku/internal/queue"
	"github.com/tsundoku-app/tsundoku/internal/state"
	"github.com/tsundoku-app/tsundoku/internal/tui"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// GlobalService is the service of the running instance.
var GlobalService core.Service

var rootCmd = &cobra.Command{
	Use:     "tsundoku [url]...",
	Short:   "Manga and anime download queue for the terminal",
	Long:    `Tsundoku keeps separate manga and anime download queues and shows their combined state in a terminal UI.`,
	Version: Version,
	Args:    cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()

		portFlag, _ := cmd.Flags().GetInt("port")
		outputDir, _ := cmd.Flags().GetString("output")
		headless, _ := cmd.Flags().GetBool("headless")
		kindFlag, _ := cmd.Flags().GetString("kind")

		kind, err := download.ParseContentKind(kindFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		isMaster, err := AcquireLock()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error acquiring lock: %v\n", err)
			os.Exit(1)
		}
		if !isMaster {
			if headless {
				fmt.Fprintln(os.Stderr, "Error: tsundoku is already running.")
				os.Exit(1)
			}
			// Another instance owns the queues; attach to it.
			svc := mustService()
			defer func() { _ = svc.Shutdown() }()
			if len(args) > 0 {
				queueInitial(svc, kind, args, outputDir)
			}
			startTUI(svc, settings)
			return
		}
		defer func() {
			if err := ReleaseLock(); err != nil {
				utils.Debug("Error releasing lock: %v", err)
			}
		}()

		svc := newLocalService(settings, outputDir)
		GlobalService = svc
		defer func() {
			if err := executeGlobalShutdown("exit"); err != nil {
				utils.Debug("%v", err)
			}
			state.CloseDB()
		}()

		port, listener := listen(portFlag)
		saveActivePort(port)
		defer removeActivePort()

		server := startHTTPServer(listener, port, svc)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()

		if len(args) > 0 {
			queueInitial(svc, kind, args, outputDir)
		}

		if headless {
			fmt.Printf("tsundoku %s listening on 127.0.0.1:%d\n", Version, port)
			runHeadless(svc)
			return
		}
		startTUI(svc, settings)
	},
}

func listen(portFlag int) (int, net.Listener) {
	if portFlag > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", portFlag))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not bind to port %d: %v\n", portFlag, err)
			os.Exit(1)
		}
		return portFlag, ln
	}
	port, ln := findAvailablePort(defaultPort)
	if ln == nil {
		fmt.Fprintln(os.Stderr, "Error: could not find available port")
		os.Exit(1)
	}
	return port, ln
}

// newLocalService builds both download managers from settings, restores
// their saved queues and wraps them in a LocalService.
func newLocalService(settings *config.Settings, outputDir string) *core.LocalService {
	rc := settings.ToRuntimeConfig()
	events := make(chan any, 100)
	fetcher := download.NewHTTPFetcher(rc.UserAgent, rc.PageTimeout)
	opts := func(workers int) download.Options {
		return download.Options{Workers: workers, MaxRetries: rc.MaxRetries, AutoStart: rc.AutoStart}
	}

	manga := download.NewManager(download.KindManga, fetcher, state.Store{}, opts(rc.MangaWorkers), events)
	anime := download.NewManager(download.KindAnime, fetcher, state.Store{}, opts(rc.AnimeWorkers), events)
	for _, m := range []*download.Manager{manga, anime} {
		if err := m.Restore(); err != nil {
			utils.Debug("Restoring %s queue: %v", m.Kind(), err)
		}
	}

	dir := outputDir
	if dir == "" {
		dir = rc.DownloadDir
	}
	if dir == "" {
		dir = "."
	}
	return core.NewLocalService(manga, anime, more.NewSettingsPreferences(settings), dir, events)
}

// queueInitial adds the URLs given on the command line as one request.
func queueInitial(svc core.Service, kind download.ContentKind, urls []string, outputDir string) {
	added, err := svc.Add(core.AddRequest{Kind: kind, URLs: urls, DestDir: outputDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding downloads: %v\n", err)
		return
	}
	utils.Debug("Queued %d item(s) from command line", len(added))
}

func startTUI(svc core.Service, settings *config.Settings) {
	tui.ApplyTheme(settings.General.Theme)
	m := tui.NewRootModel(svc)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			p.Quit()
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// runHeadless logs status changes and events to stdout until a signal arrives.
func runHeadless(svc core.Service) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statuses, err := svc.StreamStatus(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting status stream: %v\n", err)
		os.Exit(1)
	}
	events, err := svc.StreamEvents(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting event stream: %v\n", err)
		os.Exit(1)
	}

	for statuses != nil || events != nil {
		select {
		case <-ctx.Done():
			fmt.Println("Shutting down...")
			return
		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			fmt.Printf("Queue: %s\n", describeStatus(st))
		case msg, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if line := describeEvent(msg); line != "" {
				fmt.Println(line)
			}
		}
	}
}

func describeStatus(st queue.Status) string {
	switch st.Kind {
	case queue.KindDownloading:
		return fmt.Sprintf("downloading, %d remaining", st.Pending)
	case queue.KindPaused:
		return fmt.Sprintf("paused, %d remaining", st.Pending)
	default:
		return "stopped"
	}
}

func describeEvent(msg any) string {
	switch m := msg.(type) {
	case download.ItemQueuedMsg:
		return fmt.Sprintf("Queued: %s [%s]", m.Title, utils.ShortID(m.ItemID))
	case download.ItemStartedMsg:
		return fmt.Sprintf("Started: %s [%s] (%d files)", m.Title, utils.ShortID(m.ItemID), m.Pages)
	case download.ItemCompleteMsg:
		return fmt.Sprintf("Completed: %s [%s] (in %s)", m.Title, utils.ShortID(m.ItemID), m.Elapsed.Round(time.Millisecond))
	case download.ItemErrorMsg:
		return fmt.Sprintf("Error: %s [%s]: %s", m.Title, utils.ShortID(m.ItemID), m.Message)
	case download.ItemRemovedMsg:
		return fmt.Sprintf("Removed: %s [%s]", m.Title, utils.ShortID(m.ItemID))
	case download.QueuePausedMsg:
		return fmt.Sprintf("Paused %s queue, %d remaining", m.Kind, m.Pending)
	}
	return ""
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().IntP("port", "p", 0, fmt.Sprintf("Port to listen on (default: %d or first available)", defaultPort))
	rootCmd.Flags().StringP("output", "o", "", "Default output directory")
	rootCmd.Flags().StringP("kind", "k", string(download.KindManga), "Content kind of URLs given as arguments (manga or anime)")
	rootCmd.Flags().Bool("headless", false, "Run without the TUI and log events to stdout")
	rootCmd.SetVersionTemplate("tsundoku version {{.Version}}\n")
}

// initializeGlobalState sets up directories, logging and the state database,
// and returns the loaded settings.
func initializeGlobalState() *config.Settings {
	if err := config.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		settings = config.DefaultSettings()
	}

	utils.ConfigureDebug(config.GetLogsDir())
	utils.SetQuiet(settings.General.QuietLogs)
	utils.CleanupLogs(settings.General.LogRetentionCount)

	state.Configure(filepath.Join(config.GetStateDir(), "tsundoku.db"))
	return settings
}
