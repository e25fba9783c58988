package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tsundoku-test", r.Header.Get("User-Agent"))
		_, _ = w.Write(append(append([]byte{}, pngHeader...), []byte(r.URL.Path)...))
	})
	mux.HandleFunc("/episode", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="Episode 1.mkv"`)
		_, _ = w.Write([]byte("video bytes"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	// 12 chunks of 4 KiB, 20ms apart.
	mux.HandleFunc("/trickle", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		chunk := bytes.Repeat([]byte{'v'}, 4096)
		for range 12 {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(20 * time.Millisecond):
			}
		}
	})
	// Headers and some data, then nothing.
	mux.HandleFunc("/stall", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{'v'}, 4096))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_ChapterPages(t *testing.T) {
	srv := pageServer(t)
	dest := t.TempDir()

	item := Item{
		Title:   "Vol.1 Ch.1",
		DestDir: dest,
		Source:  "https://source.example.com",
	}
	for i := 1; i <= 3; i++ {
		item.URLs = append(item.URLs, fmt.Sprintf("%s/page/%d", srv.URL, i))
	}

	var progress []int
	f := NewHTTPFetcher("tsundoku-test", time.Second)
	require.NoError(t, f.Fetch(context.Background(), item, func(done int) { progress = append(progress, done) }))

	assert.Equal(t, []int{1, 2, 3}, progress)
	for _, name := range []string{"001.png", "002.png", "003.png"} {
		_, err := os.Stat(filepath.Join(dest, "Vol.1 Ch.1", name))
		assert.NoError(t, err, name)
	}
	entries, err := os.ReadDir(filepath.Join(dest, "Vol.1 Ch.1"))
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no partial files should be left behind")
}

func TestHTTPFetcher_ResumesFromPagesDone(t *testing.T) {
	srv := pageServer(t)
	dest := t.TempDir()

	item := Item{
		Title:     "Ch.2",
		DestDir:   dest,
		URLs:      []string{srv.URL + "/missing", srv.URL + "/page/2"},
		PagesDone: 1,
	}

	f := NewHTTPFetcher("tsundoku-test", time.Second)
	require.NoError(t, f.Fetch(context.Background(), item, nil))

	_, err := os.Stat(filepath.Join(dest, "Ch.2", "001.png"))
	assert.True(t, os.IsNotExist(err), "page 1 should have been skipped")
	_, err = os.Stat(filepath.Join(dest, "Ch.2", "002.png"))
	assert.NoError(t, err)
}

func TestHTTPFetcher_EpisodeUsesContentDisposition(t *testing.T) {
	srv := pageServer(t)
	dest := t.TempDir()

	item := Item{Title: "Show", DestDir: dest, URLs: []string{srv.URL + "/episode"}}
	f := NewHTTPFetcher("", time.Second)
	require.NoError(t, f.Fetch(context.Background(), item, nil))

	data, err := os.ReadFile(filepath.Join(dest, "Show", "Episode 1.mkv"))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))
}

func TestHTTPFetcher_HTTPError(t *testing.T) {
	srv := pageServer(t)
	item := Item{Title: "Broken", DestDir: t.TempDir(), URLs: []string{srv.URL + "/missing", srv.URL + "/page/2"}}

	err := NewHTTPFetcher("", time.Second).Fetch(context.Background(), item, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPFetcher_PageTimeout(t *testing.T) {
	srv := pageServer(t)
	item := Item{Title: "Slow", DestDir: t.TempDir(), URLs: []string{srv.URL + "/slow"}}

	start := time.Now()
	err := NewHTTPFetcher("", 50*time.Millisecond).Fetch(context.Background(), item, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStalled)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestHTTPFetcher_SlowTransferOutlivesPageTimeout(t *testing.T) {
	srv := pageServer(t)
	dest := t.TempDir()
	item := Item{Title: "Show", DestDir: dest, URLs: []string{srv.URL + "/trickle"}}

	// The transfer takes about 240ms but data never stops for 100ms.
	start := time.Now()
	require.NoError(t, NewHTTPFetcher("", 100*time.Millisecond).Fetch(context.Background(), item, nil))
	assert.Greater(t, time.Since(start), 100*time.Millisecond)

	entries, err := os.ReadDir(filepath.Join(dest, "Show"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, int64(12*4096), info.Size())
}

func TestHTTPFetcher_StallMidBody(t *testing.T) {
	srv := pageServer(t)
	dest := t.TempDir()
	item := Item{Title: "Stalled", DestDir: dest, URLs: []string{srv.URL + "/stall"}}

	start := time.Now()
	err := NewHTTPFetcher("", 100*time.Millisecond).Fetch(context.Background(), item, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStalled)
	assert.NotErrorIs(t, err, context.Canceled, "a stall is a failure, not a pause")
	assert.Less(t, time.Since(start), 3*time.Second)

	entries, err := os.ReadDir(filepath.Join(dest, "Stalled"))
	require.NoError(t, err)
	assert.Empty(t, entries, "the partial file is removed")
}

func TestHTTPFetcher_Cancelled(t *testing.T) {
	srv := pageServer(t)
	item := Item{Title: "Cancelled", DestDir: t.TempDir(), URLs: []string{srv.URL + "/slow"}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	err := NewHTTPFetcher("", 0).Fetch(ctx, item, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
