package core

import (
	"context"
	"errors"

	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/queue"
)

// ErrNotRunning is returned by RemoteService when no instance is listening.
var ErrNotRunning = errors.New("tsundoku is not running")

// AddRequest describes new downloads. A manga request becomes one chapter
// item whose pages are URLs. An anime request becomes one episode item per URL.
type AddRequest struct {
	Kind    download.ContentKind `json:"kind"`
	Title   string               `json:"title,omitempty"`
	Source  string               `json:"source,omitempty"`
	URLs    []string             `json:"urls"`
	DestDir string               `json:"dest_dir,omitempty"`
}

// Toggles are the More tab switches.
type Toggles struct {
	DownloadedOnly bool `json:"downloaded_only"`
	IncognitoMode  bool `json:"incognito_mode"`
}

// ToggleRequest changes the switches that are set.
type ToggleRequest struct {
	DownloadedOnly *bool `json:"downloaded_only,omitempty"`
	IncognitoMode  *bool `json:"incognito_mode,omitempty"`
}

// Service is the interface the TUI, the HTTP API and the CLI work against.
// LocalService runs the downloaders in process, RemoteService talks to a
// running instance over HTTP.
type Service interface {
	// Status returns the combined queue status.
	Status() (queue.Status, error)

	// Queue returns the manga queue followed by the anime queue.
	Queue() ([]download.Item, error)

	// Add queues new items.
	Add(req AddRequest) ([]download.Item, error)

	// Pause pauses both queues.
	Pause() error

	// Resume starts both queues.
	Resume() error

	// Clear empties both queues.
	Clear() error

	// Remove drops one item from whichever queue holds it.
	Remove(id string) error

	// History returns finished items, newest first.
	History(limit int) ([]download.HistoryEntry, error)

	Toggles() (Toggles, error)
	SetToggles(req ToggleRequest) (Toggles, error)

	// StreamStatus delivers the current status and every change after it
	// until ctx is done. Slow readers only see the latest status.
	StreamStatus(ctx context.Context) (<-chan queue.Status, error)

	// StreamEvents delivers download events until ctx is done.
	StreamEvents(ctx context.Context) (<-chan any, error)

	// Shutdown handles graceful shutdown of the service
	Shutdown() error
}
