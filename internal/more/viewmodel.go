package more

import (
	"context"
	"fmt"
	"sync"

	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/queue"
	"github.com/tsundoku-app/tsundoku/internal/signal"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// Downloader is a download queue the More tab can observe and control.
type Downloader interface {
	queue.Source[download.Item]
	Start() bool
	Pause()
	Clear()
}

// ViewModel backs the More tab: the combined queue status of the manga and
// anime downloaders plus the downloaded-only and incognito toggles.
type ViewModel struct {
	manga Downloader
	anime Downloader
	prefs Preferences

	queueState     *queue.Aggregator
	downloadedOnly *signal.State[bool]
	incognitoMode  *signal.State[bool]

	// toggleMu keeps the saved and the published toggle values in step.
	toggleMu  sync.Mutex
	closeOnce sync.Once
}

// NewViewModel starts observing manga and anime. The aggregator runs until
// ctx is done or Close is called.
func NewViewModel(ctx context.Context, manga, anime Downloader, prefs Preferences) *ViewModel {
	vm := &ViewModel{
		manga:          manga,
		anime:          anime,
		prefs:          prefs,
		queueState:     queue.NewAggregator[download.Item, download.Item](manga, anime),
		downloadedOnly: signal.NewComparable(prefs.DownloadedOnly()),
		incognitoMode:  signal.NewComparable(prefs.IncognitoMode()),
	}
	vm.queueState.Start(ctx)
	return vm
}

// DownloadQueueState is the combined status of both download queues.
func (vm *ViewModel) DownloadQueueState() signal.Reader[queue.Status] {
	return vm.queueState.Status()
}

func (vm *ViewModel) DownloadedOnly() signal.Reader[bool] { return vm.downloadedOnly }

func (vm *ViewModel) IncognitoMode() signal.Reader[bool] { return vm.incognitoMode }

// SetDownloadedOnly persists the toggle, then publishes it.
func (vm *ViewModel) SetDownloadedOnly(enabled bool) error {
	return vm.setToggle("downloaded only", vm.prefs.SetDownloadedOnly, vm.downloadedOnly, enabled)
}

// SetIncognitoMode persists the toggle, then publishes it.
func (vm *ViewModel) SetIncognitoMode(enabled bool) error {
	return vm.setToggle("incognito mode", vm.prefs.SetIncognitoMode, vm.incognitoMode, enabled)
}

func (vm *ViewModel) setToggle(name string, save func(bool) error, sig *signal.State[bool], enabled bool) error {
	vm.toggleMu.Lock()
	defer vm.toggleMu.Unlock()
	if err := save(enabled); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	sig.Set(enabled)
	return nil
}

// PauseAll pauses both queues.
func (vm *ViewModel) PauseAll() {
	vm.manga.Pause()
	vm.anime.Pause()
	utils.Debug("More: paused all downloads")
}

// ResumeAll starts both queues and reports whether either had work.
func (vm *ViewModel) ResumeAll() bool {
	m := vm.manga.Start()
	a := vm.anime.Start()
	utils.Debug("More: resume all (manga=%v anime=%v)", m, a)
	return m || a
}

// TogglePause pauses when anything is downloading, resumes otherwise.
func (vm *ViewModel) TogglePause() {
	if vm.DownloadQueueState().Value().Kind == queue.KindDownloading {
		vm.PauseAll()
		return
	}
	vm.ResumeAll()
}

// ClearAll empties both queues.
func (vm *ViewModel) ClearAll() {
	vm.manga.Clear()
	vm.anime.Clear()
	utils.Debug("More: cleared all queues")
}

// Close stops the aggregator and closes the toggle signals. The
// downloaders are left running.
func (vm *ViewModel) Close() {
	vm.closeOnce.Do(func() {
		vm.queueState.Stop()
		vm.downloadedOnly.Close()
		vm.incognitoMode.Close()
	})
}
