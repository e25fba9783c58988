package core

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/queue"
	"github.com/tsundoku-app/tsundoku/internal/state"
)

// gatedFetcher blocks until released or cancelled.
type gatedFetcher struct {
	release chan struct{}
	once    sync.Once
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{release: make(chan struct{})}
}

func (f *gatedFetcher) Fetch(ctx context.Context, item download.Item, progress func(int)) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.release:
		progress(len(item.URLs))
		return nil
	}
}

func (f *gatedFetcher) open() { f.once.Do(func() { close(f.release) }) }

type memPrefs struct {
	mu  sync.Mutex
	t   Toggles
	err error
}

func (p *memPrefs) DownloadedOnly() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.t.DownloadedOnly }
func (p *memPrefs) IncognitoMode() bool  { p.mu.Lock(); defer p.mu.Unlock(); return p.t.IncognitoMode }

func (p *memPrefs) SetDownloadedOnly(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.t.DownloadedOnly = v
	return nil
}

func (p *memPrefs) SetIncognitoMode(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.t.IncognitoMode = v
	return nil
}

func setupState(t *testing.T) {
	t.Helper()
	state.CloseDB()
	state.Configure(filepath.Join(t.TempDir(), "tsundoku.db"))
	t.Cleanup(state.CloseDB)
}

func newTestService(t *testing.T, f download.Fetcher, prefs *memPrefs) *LocalService {
	t.Helper()
	setupState(t)
	events := make(chan any, 100)
	opts := download.Options{Workers: 1, RetryDelay: time.Millisecond}
	manga := download.NewManager(download.KindManga, f, state.Store{}, opts, events)
	anime := download.NewManager(download.KindAnime, f, state.Store{}, opts, events)
	if prefs == nil {
		prefs = &memPrefs{}
	}
	svc := NewLocalService(manga, anime, prefs, t.TempDir(), events)
	t.Cleanup(func() { _ = svc.Shutdown() })
	return svc
}

func waitForStatus(t *testing.T, svc Service, want queue.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := svc.Status()
		return err == nil && st == want
	}, 2*time.Second, 5*time.Millisecond, "want %s", want)
}

func TestLocalService_AddMangaChapter(t *testing.T) {
	svc := newTestService(t, newGatedFetcher(), nil)

	added, err := svc.Add(AddRequest{
		Kind: download.KindManga,
		URLs: []string{"https://cdn.example.com/series/chapter-12/1.png", "https://cdn.example.com/series/chapter-12/2.png"},
	})
	require.NoError(t, err)
	require.Len(t, added, 1, "one chapter item")
	assert.Equal(t, "chapter-12", added[0].Title)
	assert.Len(t, added[0].URLs, 2)
	assert.True(t, filepath.IsAbs(added[0].DestDir))

	waitForStatus(t, svc, queue.Paused(1))
}

func TestLocalService_AddAnimeEpisodes(t *testing.T) {
	svc := newTestService(t, newGatedFetcher(), nil)

	added, err := svc.Add(AddRequest{
		Kind:  download.KindAnime,
		Title: "Show",
		URLs:  []string{"https://cdn.example.com/ep1.mp4", "https://cdn.example.com/ep2.mp4"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2, "one item per episode")
	assert.Equal(t, "Show - 01", added[0].Title)
	assert.Equal(t, "Show - 02", added[1].Title)

	items, err := svc.Queue()
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestLocalService_AddInvalid(t *testing.T) {
	svc := newTestService(t, newGatedFetcher(), nil)

	_, err := svc.Add(AddRequest{Kind: "novel", URLs: []string{"u"}})
	assert.ErrorIs(t, err, download.ErrInvalidItem)

	_, err = svc.Add(AddRequest{Kind: download.KindManga})
	assert.ErrorIs(t, err, download.ErrInvalidItem)
}

func TestLocalService_PauseResumeClear(t *testing.T) {
	f := newGatedFetcher()
	svc := newTestService(t, f, nil)

	_, err := svc.Add(AddRequest{Kind: download.KindManga, Title: "Ch.1", URLs: []string{"https://example.com/1.png"}})
	require.NoError(t, err)
	_, err = svc.Add(AddRequest{Kind: download.KindAnime, Title: "Ep.1", URLs: []string{"https://example.com/ep1.mp4"}})
	require.NoError(t, err)
	waitForStatus(t, svc, queue.Paused(2))

	require.NoError(t, svc.Resume())
	waitForStatus(t, svc, queue.Downloading(2))

	require.NoError(t, svc.Pause())
	waitForStatus(t, svc, queue.Paused(2))

	require.NoError(t, svc.Clear())
	waitForStatus(t, svc, queue.Stopped())
}

func TestLocalService_CompletedItemsReachHistory(t *testing.T) {
	f := newGatedFetcher()
	svc := newTestService(t, f, nil)

	_, err := svc.Add(AddRequest{Kind: download.KindManga, Title: "Ch.1", URLs: []string{"https://example.com/1.png"}})
	require.NoError(t, err)
	require.NoError(t, svc.Resume())
	f.open()

	waitForStatus(t, svc, queue.Stopped())
	require.Eventually(t, func() bool {
		entries, err := svc.History(10)
		return err == nil && len(entries) == 1
	}, 2*time.Second, 5*time.Millisecond)

	entries, _ := svc.History(10)
	assert.Equal(t, "Ch.1", entries[0].Title)
	assert.Equal(t, download.KindManga, entries[0].Kind)
}

func TestLocalService_Remove(t *testing.T) {
	svc := newTestService(t, newGatedFetcher(), nil)

	added, err := svc.Add(AddRequest{Kind: download.KindAnime, Title: "Ep", URLs: []string{"https://example.com/ep.mp4"}})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(added[0].ID))
	assert.ErrorIs(t, svc.Remove(added[0].ID), download.ErrNotFound)
	waitForStatus(t, svc, queue.Stopped())
}

func TestLocalService_Toggles(t *testing.T) {
	prefs := &memPrefs{}
	svc := newTestService(t, newGatedFetcher(), prefs)

	on := true
	got, err := svc.SetToggles(ToggleRequest{IncognitoMode: &on})
	require.NoError(t, err)
	assert.Equal(t, Toggles{IncognitoMode: true}, got)
	assert.True(t, prefs.IncognitoMode())

	prefs.err = errors.New("boom")
	_, err = svc.SetToggles(ToggleRequest{DownloadedOnly: &on})
	assert.Error(t, err)

	got, err = svc.Toggles()
	require.NoError(t, err)
	assert.False(t, got.DownloadedOnly)
}

func TestLocalService_StreamStatus(t *testing.T) {
	svc := newTestService(t, newGatedFetcher(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := svc.StreamStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stopped(), <-stream)

	_, err = svc.Add(AddRequest{Kind: download.KindManga, Title: "Ch.1", URLs: []string{"https://example.com/1.png"}})
	require.NoError(t, err)

	select {
	case st := <-stream:
		assert.Equal(t, queue.Paused(1), st)
	case <-time.After(2 * time.Second):
		t.Fatal("no status update")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-stream:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond, "stream should close after cancel")
}

func TestLocalService_StreamEvents(t *testing.T) {
	svc := newTestService(t, newGatedFetcher(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := svc.StreamEvents(ctx)
	require.NoError(t, err)

	added, err := svc.Add(AddRequest{Kind: download.KindManga, Title: "Ch.1", URLs: []string{"https://example.com/1.png"}})
	require.NoError(t, err)

	select {
	case msg := <-events:
		queued, ok := msg.(download.ItemQueuedMsg)
		require.True(t, ok, "got %T", msg)
		assert.Equal(t, added[0].ID, queued.ItemID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	require.NoError(t, svc.Shutdown())
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 5*time.Millisecond, "events should close on shutdown")
}

func TestLocalService_ShutdownPersistsQueue(t *testing.T) {
	f := newGatedFetcher()
	svc := newTestService(t, f, nil)

	_, err := svc.Add(AddRequest{Kind: download.KindManga, Title: "Ch.1", URLs: []string{"https://example.com/1.png"}})
	require.NoError(t, err)
	require.NoError(t, svc.Resume())
	waitForStatus(t, svc, queue.Downloading(1))

	require.NoError(t, svc.Shutdown())
	require.NoError(t, svc.Shutdown(), "second shutdown is a no-op")

	items, err := state.LoadQueue(download.KindManga)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, download.StateQueued, items[0].State)
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://cdn.example.com/series/ch-3/07.jpg", "ch-3"},
		{"https://cdn.example.com/videos/Episode_5.mp4", "Episode_5"},
		{"https://cdn.example.com/", "cdn.example.com"},
		{"https://cdn.example.com/12", "12"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleFromURL(tt.in), tt.in)
	}
}
