package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsundoku-app/tsundoku/internal/download"
)

func TestSaveLoadQueue_RoundTrip(t *testing.T) {
	setupTestDB(t)

	items := []download.Item{
		{
			ID:        "b",
			Kind:      download.KindManga,
			Title:     "Ch.2",
			Source:    "https://source.example.com/series",
			URLs:      []string{"https://cdn.example.com/2/1.png?a=1,2", "https://cdn.example.com/2/2.png"},
			DestDir:   "/library/Series",
			State:     download.StateDownloading,
			PagesDone: 1,
			CreatedAt: 200,
		},
		{
			ID:        "a",
			Kind:      download.KindManga,
			Title:     "Ch.1",
			URLs:      []string{"https://cdn.example.com/1/1.png"},
			State:     download.StateError,
			Error:     "page 1: server returned 404 Not Found",
			CreatedAt: 100,
		},
	}
	require.NoError(t, SaveQueue(download.KindManga, items))

	loaded, err := LoadQueue(download.KindManga)
	require.NoError(t, err)
	assert.Equal(t, items, loaded, "order and fields should survive a round trip")
}

func TestSaveQueue_ReplacesPrevious(t *testing.T) {
	setupTestDB(t)

	first := []download.Item{
		{ID: "1", Title: "one", URLs: []string{"u1"}, State: download.StateQueued},
		{ID: "2", Title: "two", URLs: []string{"u2"}, State: download.StateQueued},
	}
	require.NoError(t, SaveQueue(download.KindAnime, first))
	require.NoError(t, SaveQueue(download.KindAnime, first[1:]))

	loaded, err := LoadQueue(download.KindAnime)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "2", loaded[0].ID)

	require.NoError(t, SaveQueue(download.KindAnime, nil))
	loaded, err = LoadQueue(download.KindAnime)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveQueue_KindsAreIndependent(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, SaveQueue(download.KindManga, []download.Item{{ID: "m", Title: "m", URLs: []string{"u"}}}))
	require.NoError(t, SaveQueue(download.KindAnime, []download.Item{{ID: "e", Title: "e", URLs: []string{"u"}}}))
	require.NoError(t, SaveQueue(download.KindManga, nil))

	anime, err := LoadQueue(download.KindAnime)
	require.NoError(t, err)
	require.Len(t, anime, 1)
	assert.Equal(t, download.KindAnime, anime[0].Kind)

	manga, err := LoadQueue(download.KindManga)
	require.NoError(t, err)
	assert.Empty(t, manga)
}

func TestStore_ImplementsDownloadStore(t *testing.T) {
	setupTestDB(t)

	var s download.Store = Store{}
	require.NoError(t, s.SaveQueue(download.KindManga, []download.Item{{ID: "x", Title: "x", URLs: []string{"u"}}}))
	items, err := s.LoadQueue(download.KindManga)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, s.AddToHistory(download.HistoryEntry{ID: "x", Kind: download.KindManga, Title: "x"}))
	entries, err := ListHistory(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func BenchmarkSaveQueue(b *testing.B) {
	setupTestDB(b)

	items := make([]download.Item, 200)
	for i := range items {
		items[i] = download.Item{
			ID:    fmt.Sprintf("item-%d", i),
			Title: fmt.Sprintf("Ch.%d", i),
			URLs:  []string{"https://cdn.example.com/1.png", "https://cdn.example.com/2.png"},
			State: download.StateQueued,
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := SaveQueue(download.KindManga, items); err != nil {
			b.Fatal(err)
		}
	}
}
