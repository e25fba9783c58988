package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/more"
	"github.com/tsundoku-app/tsundoku/internal/queue"
	"github.com/tsundoku-app/tsundoku/internal/state"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// LocalService implements Service on top of the in-process download managers.
type LocalService struct {
	vm          *more.ViewModel
	managers    map[download.ContentKind]*download.Manager
	downloadDir string

	// InputCh receives the managers' events; broadcastLoop fans them out.
	InputCh chan any

	listeners  []chan any
	listenerMu sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	shutdown sync.Once
}

// NewLocalService wires the service to the managers. events must be the
// channel the managers were created with.
func NewLocalService(manga, anime *download.Manager, prefs more.Preferences, downloadDir string, events chan any) *LocalService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &LocalService{
		vm: more.NewViewModel(ctx, manga, anime, prefs),
		managers: map[download.ContentKind]*download.Manager{
			download.KindManga: manga,
			download.KindAnime: anime,
		},
		downloadDir: downloadDir,
		InputCh:     events,
		ctx:         ctx,
		cancel:      cancel,
	}
	if events != nil {
		go s.broadcastLoop()
	}
	return s
}

// ViewModel exposes the More tab view-model.
func (s *LocalService) ViewModel() *more.ViewModel { return s.vm }

func (s *LocalService) broadcastLoop() {
	defer func() {
		s.listenerMu.Lock()
		for _, ch := range s.listeners {
			close(ch)
		}
		s.listeners = nil
		s.listenerMu.Unlock()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.InputCh:
			s.listenerMu.Lock()
			for _, ch := range s.listeners {
				// Drop for slow listeners
				select {
				case ch <- msg:
				default:
				}
			}
			s.listenerMu.Unlock()
		}
	}
}

func (s *LocalService) Status() (queue.Status, error) {
	return s.vm.DownloadQueueState().Value(), nil
}

func (s *LocalService) Queue() ([]download.Item, error) {
	items := s.managers[download.KindManga].Items()
	return append(items, s.managers[download.KindAnime].Items()...), nil
}

func (s *LocalService) Add(req AddRequest) ([]download.Item, error) {
	m, ok := s.managers[req.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", download.ErrInvalidItem, req.Kind)
	}
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("%w: no urls", download.ErrInvalidItem)
	}

	dest := req.DestDir
	if dest == "" {
		dest = s.downloadDir
	}
	dest = utils.EnsureAbsPath(dest)

	var items []download.Item
	switch req.Kind {
	case download.KindManga:
		title := req.Title
		if title == "" {
			title = titleFromURL(req.URLs[0])
		}
		items = append(items, download.Item{Title: title, Source: req.Source, URLs: req.URLs, DestDir: dest})
	case download.KindAnime:
		for i, u := range req.URLs {
			title := req.Title
			switch {
			case title == "":
				title = titleFromURL(u)
			case len(req.URLs) > 1:
				title = fmt.Sprintf("%s - %02d", title, i+1)
			}
			items = append(items, download.Item{Title: title, Source: req.Source, URLs: []string{u}, DestDir: dest})
		}
	}

	added, err := m.Add(items...)
	if err != nil {
		return nil, err
	}
	utils.Debug("Queued %d %s item(s)", len(added), req.Kind)
	return added, nil
}

// titleFromURL names an item after the last path segment of u without its
// extension, or the host when the path is empty.
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	// Chapter pages usually end in a page number; use the directory above it.
	p := strings.TrimSuffix(u.Path, "/")
	base := path.Base(p)
	name := strings.TrimSuffix(base, path.Ext(base))
	if isDigits(name) {
		if dir := path.Base(path.Dir(p)); dir != "/" && dir != "." {
			name = dir
		}
	}
	if name == "" || name == "/" || name == "." {
		return u.Host
	}
	return name
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *LocalService) Pause() error {
	s.vm.PauseAll()
	return nil
}

func (s *LocalService) Resume() error {
	s.vm.ResumeAll()
	return nil
}

func (s *LocalService) Clear() error {
	s.vm.ClearAll()
	return nil
}

func (s *LocalService) Remove(id string) error {
	for _, m := range s.managers {
		err := m.Remove(id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, download.ErrNotFound) {
			return err
		}
	}
	return fmt.Errorf("%w: %s", download.ErrNotFound, id)
}

func (s *LocalService) History(limit int) ([]download.HistoryEntry, error) {
	return state.ListHistory(limit)
}

func (s *LocalService) Toggles() (Toggles, error) {
	return Toggles{
		DownloadedOnly: s.vm.DownloadedOnly().Value(),
		IncognitoMode:  s.vm.IncognitoMode().Value(),
	}, nil
}

func (s *LocalService) SetToggles(req ToggleRequest) (Toggles, error) {
	if req.DownloadedOnly != nil {
		if err := s.vm.SetDownloadedOnly(*req.DownloadedOnly); err != nil {
			return Toggles{}, err
		}
	}
	if req.IncognitoMode != nil {
		if err := s.vm.SetIncognitoMode(*req.IncognitoMode); err != nil {
			return Toggles{}, err
		}
	}
	return s.Toggles()
}

func (s *LocalService) StreamStatus(ctx context.Context) (<-chan queue.Status, error) {
	return s.vm.DownloadQueueState().Subscribe(ctx), nil
}

// StreamEvents returns a channel that receives download events until ctx is
// done or the service shuts down.
func (s *LocalService) StreamEvents(ctx context.Context) (<-chan any, error) {
	ch := make(chan any, 100)
	s.listenerMu.Lock()
	select {
	case <-s.ctx.Done():
		s.listenerMu.Unlock()
		close(ch)
		return ch, nil
	default:
	}
	s.listeners = append(s.listeners, ch)
	s.listenerMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
			return // broadcastLoop closes it
		}
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		for i, listener := range s.listeners {
			if listener == ch {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				close(ch)
				break
			}
		}
	}()

	return ch, nil
}

// Shutdown pauses both managers, which persists their queues, and stops
// every stream.
func (s *LocalService) Shutdown() error {
	s.shutdown.Do(func() {
		s.vm.Close()
		for _, m := range s.managers {
			m.Close()
		}
		s.cancel()
		if s.InputCh == nil {
			// No broadcast loop to close listeners.
			s.listenerMu.Lock()
			for _, ch := range s.listeners {
				close(ch)
			}
			s.listeners = nil
			s.listenerMu.Unlock()
		}
	})
	return nil
}
