package download

import (
	"errors"
	"fmt"
	"strings"
)

// ContentKind selects which download subsystem an item belongs to.
type ContentKind string

const (
	KindManga ContentKind = "manga"
	KindAnime ContentKind = "anime"
)

// ParseContentKind parses "manga" or "anime", case-insensitively.
func ParseContentKind(s string) (ContentKind, error) {
	switch ContentKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindManga:
		return KindManga, nil
	case KindAnime:
		return KindAnime, nil
	}
	return "", fmt.Errorf("unknown content kind %q (want manga or anime)", s)
}

// ItemState is the state of a queued item.
type ItemState string

const (
	StateQueued      ItemState = "queued"
	StateDownloading ItemState = "downloading"
	StateError       ItemState = "error"
)

var (
	ErrNotFound    = errors.New("download not found")
	ErrInvalidItem = errors.New("invalid download item")
	ErrStalled     = errors.New("download stalled")
)

// Item is a chapter or an episode waiting in a download queue.
// URLs holds the page images of a chapter, or the single video URL of an episode.
type Item struct {
	ID        string      `json:"id"`
	Kind      ContentKind `json:"kind"`
	Title     string      `json:"title"`
	Source    string      `json:"source,omitempty"`
	URLs      []string    `json:"urls"`
	DestDir   string      `json:"dest_dir"`
	State     ItemState   `json:"state"`
	PagesDone int         `json:"pages_done"`
	Error     string      `json:"error,omitempty"`
	CreatedAt int64       `json:"created_at"`
}

// Pages returns the number of files the item consists of.
func (i Item) Pages() int {
	return len(i.URLs)
}

// Progress returns the completed fraction in [0, 1].
func (i Item) Progress() float64 {
	if len(i.URLs) == 0 {
		return 0
	}
	return float64(min(i.PagesDone, len(i.URLs))) / float64(len(i.URLs))
}

// HistoryEntry records a finished item.
type HistoryEntry struct {
	ID          string      `json:"id"`
	Kind        ContentKind `json:"kind"`
	Title       string      `json:"title"`
	Source      string      `json:"source,omitempty"`
	DestDir     string      `json:"dest_dir"`
	Pages       int         `json:"pages"`
	CompletedAt int64       `json:"completed_at"`
	TimeTaken   int64       `json:"time_taken"` // milliseconds
}

// Store persists queues across restarts.
type Store interface {
	SaveQueue(kind ContentKind, items []Item) error
	LoadQueue(kind ContentKind) ([]Item, error)
	AddToHistory(entry HistoryEntry) error
}
