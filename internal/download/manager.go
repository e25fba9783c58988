package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tsundoku-app/tsundoku/internal/signal"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// Options configures a Manager.
type Options struct {
	Workers    int           // items downloaded in parallel
	MaxRetries int           // extra attempts per item after a failure
	RetryDelay time.Duration // base delay between attempts, multiplied by the attempt number
	AutoStart  bool          // start the queue when items are added or restored
}

const DefaultRetryDelay = 2 * time.Second

// Manager owns the download queue of one content kind and the workers
// draining it. Items leave the queue once downloaded. Failed items stay in
// the queue in StateError until the queue is started again.
type Manager struct {
	kind    ContentKind
	fetcher Fetcher
	store   Store
	opts    Options
	events  chan<- any

	mu       sync.Mutex
	items    []Item
	running  bool
	gen      uint64 // bumped on every Start and Pause; stale workers compare against it
	active   int    // workers of the current generation
	genCtx   context.Context
	cancel   context.CancelFunc
	inFlight map[string]*claim
	started  map[string]time.Time

	runningSig *signal.State[bool]
	queueSig   *signal.State[[]Item]
}

// claim is a worker's hold on one downloading item. Only the claim stored in
// inFlight may change the item; older claims finish silently.
type claim struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewManager creates a manager. store and events may be nil.
func NewManager(kind ContentKind, fetcher Fetcher, store Store, opts Options, events chan<- any) *Manager {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	return &Manager{
		kind:       kind,
		fetcher:    fetcher,
		store:      store,
		opts:       opts,
		events:     events,
		inFlight:   make(map[string]*claim),
		started:    make(map[string]time.Time),
		runningSig: signal.NewComparable(false),
		queueSig:   signal.New([]Item{}, nil),
	}
}

// Kind returns the content kind this manager downloads.
func (m *Manager) Kind() ContentKind { return m.kind }

// Running reports whether workers are active.
func (m *Manager) Running() signal.Reader[bool] { return m.runningSig }

// Queue is the current queue, in download order.
func (m *Manager) Queue() signal.Reader[[]Item] { return m.queueSig }

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Items returns a snapshot of the queue.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Get returns the queued item with the given ID.
func (m *Manager) Get(id string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.items[i], nil
	}
	return Item{}, ErrNotFound
}

// Restore loads the persisted queue. Items that were downloading when the
// process stopped go back to queued.
func (m *Manager) Restore() error {
	if m.store == nil {
		return nil
	}
	items, err := m.store.LoadQueue(m.kind)
	if err != nil {
		return fmt.Errorf("load %s queue: %w", m.kind, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = m.items[:0]
	for _, it := range items {
		if it.State == StateDownloading {
			it.State = StateQueued
		}
		it.Kind = m.kind
		m.items = append(m.items, it)
	}
	utils.Debug("%s queue restored with %d items", m.kind, len(m.items))
	m.publishLocked()
	if m.opts.AutoStart {
		m.startLocked()
	}
	return nil
}

// Add appends items to the queue. Items whose ID is already queued are
// skipped. The accepted items are returned with their IDs filled in.
func (m *Manager) Add(items ...Item) ([]Item, error) {
	for _, it := range items {
		if it.Title == "" || len(it.URLs) == 0 {
			return nil, fmt.Errorf("%w: title and at least one URL are required", ErrInvalidItem)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()
	var added []Item
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.New().String()
		} else if m.indexLocked(it.ID) >= 0 {
			continue
		}
		it.Kind = m.kind
		it.State = StateQueued
		it.PagesDone = 0
		it.Error = ""
		if it.CreatedAt == 0 {
			it.CreatedAt = now
		}
		m.items = append(m.items, it)
		added = append(added, it)
		m.emit(ItemQueuedMsg{ItemID: it.ID, Kind: m.kind, Title: it.Title})
	}

	if len(added) == 0 {
		return nil, nil
	}

	m.persistLocked()
	m.publishLocked()

	if m.running {
		m.spawnLocked()
	} else if m.opts.AutoStart {
		m.startLocked()
	}
	return added, nil
}

// Remove drops an item from the queue, cancelling it if it is downloading.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	it := m.items[i]
	if c, ok := m.inFlight[id]; ok {
		c.cancel()
		delete(m.inFlight, id)
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	m.persistLocked()
	m.publishLocked()
	m.emit(ItemRemovedMsg{ItemID: id, Kind: m.kind, Title: it.Title})
	return nil
}

// Start begins downloading. Failed items are queued again. It reports
// whether the manager is running afterwards.
func (m *Manager) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	requeued := false
	for i := range m.items {
		if m.items[i].State == StateError {
			m.items[i].State = StateQueued
			m.items[i].Error = ""
			requeued = true
		}
	}
	if requeued {
		m.persistLocked()
		m.publishLocked()
	}
	return m.startLocked()
}

func (m *Manager) startLocked() bool {
	if m.running {
		return true
	}
	if m.countLocked(StateQueued) == 0 {
		return false
	}

	m.gen++
	m.genCtx, m.cancel = context.WithCancel(context.Background())
	m.running = true
	m.active = 0
	utils.Debug("%s downloader started", m.kind)
	m.spawnLocked()
	m.publishLocked()
	return true
}

// spawnLocked adds workers to the running generation while more items are
// queued than idle workers can pick up.
func (m *Manager) spawnLocked() {
	if !m.running {
		return
	}
	idle := m.active - m.countLocked(StateDownloading)
	queued := m.countLocked(StateQueued)
	for m.active < m.opts.Workers && queued > idle {
		m.active++
		idle++
		go m.worker(m.genCtx, m.gen)
	}
}

// Pause stops the workers. In-flight items go back to queued and keep the
// pages they already finished.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseLocked()
}

func (m *Manager) pauseLocked() {
	if !m.running {
		return
	}
	m.gen++
	m.cancel()
	m.cancel = nil
	m.running = false
	m.active = 0
	for id, c := range m.inFlight {
		c.cancel()
		delete(m.inFlight, id)
	}
	for i := range m.items {
		if m.items[i].State == StateDownloading {
			m.items[i].State = StateQueued
		}
	}
	utils.Debug("%s downloader paused with %d items left", m.kind, len(m.items))
	m.persistLocked()
	m.publishLocked()
	m.emit(QueuePausedMsg{Kind: m.kind, Pending: len(m.items)})
}

// Clear pauses the manager and empties the queue.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseLocked()
	m.items = nil
	m.started = make(map[string]time.Time)
	m.persistLocked()
	m.publishLocked()
}

// Close pauses the manager and closes its signals.
func (m *Manager) Close() {
	m.Pause()
	m.runningSig.Close()
	m.queueSig.Close()
}

func (m *Manager) worker(ctx context.Context, gen uint64) {
	defer m.workerExited(gen)
	for {
		item, itemCtx, c := m.claim(ctx, gen)
		if c == nil {
			return
		}
		err := m.fetchWithRetry(itemCtx, c, item)
		m.finish(c, item, err)
	}
}

// claim marks the first queued item as downloading.
func (m *Manager) claim(ctx context.Context, gen uint64) (Item, context.Context, *claim) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || ctx.Err() != nil {
		return Item{}, nil, nil
	}
	for i := range m.items {
		if m.items[i].State != StateQueued {
			continue
		}
		m.items[i].State = StateDownloading
		itemCtx, cancel := context.WithCancel(ctx)
		c := &claim{gen: gen, cancel: cancel}
		m.inFlight[m.items[i].ID] = c
		if _, ok := m.started[m.items[i].ID]; !ok {
			m.started[m.items[i].ID] = time.Now()
		}
		m.publishLocked()
		it := m.items[i]
		m.emit(ItemStartedMsg{ItemID: it.ID, Kind: m.kind, Title: it.Title, Pages: it.Pages()})
		return it, itemCtx, c
	}
	return Item{}, nil, nil
}

func (m *Manager) fetchWithRetry(ctx context.Context, c *claim, item Item) error {
	progress := func(done int) { m.setProgress(c, item.ID, done) }

	var err error
	for attempt := 0; attempt <= m.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			utils.Debug("%s %q: retry %d after %v", m.kind, item.Title, attempt, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * m.opts.RetryDelay):
			}
			// Resume from whatever the last attempt finished.
			if cur, gerr := m.Get(item.ID); gerr == nil {
				item.PagesDone = cur.PagesDone
			}
		}
		err = m.fetcher.Fetch(ctx, item, progress)
		if err == nil || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (m *Manager) setProgress(c *claim, id string, done int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight[id] != c {
		return
	}
	if i := m.indexLocked(id); i >= 0 && m.items[i].State == StateDownloading {
		m.items[i].PagesDone = done
		m.publishLocked()
	}
}

func (m *Manager) finish(c *claim, item Item, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.cancel()
	i := m.indexLocked(item.ID)
	if c.gen != m.gen || m.inFlight[item.ID] != c {
		// Paused or removed since the claim. Pause already put the item
		// back in the queue and a newer claim may be downloading it.
		if i < 0 {
			delete(m.started, item.ID)
		}
		return
	}
	delete(m.inFlight, item.ID)

	switch {
	case err == nil:
		it := m.items[i]
		m.items = append(m.items[:i], m.items[i+1:]...)
		elapsed := time.Since(m.started[item.ID])
		delete(m.started, item.ID)
		if m.store != nil {
			if herr := m.store.AddToHistory(HistoryEntry{
				ID:          it.ID,
				Kind:        m.kind,
				Title:       it.Title,
				Source:      it.Source,
				DestDir:     it.DestDir,
				Pages:       it.Pages(),
				CompletedAt: time.Now().Unix(),
				TimeTaken:   elapsed.Milliseconds(),
			}); herr != nil {
				utils.Debug("failed to record history for %s: %v", it.ID, herr)
			}
		}
		utils.Debug("%s %q downloaded in %v", m.kind, it.Title, elapsed)
		m.emit(ItemCompleteMsg{ItemID: it.ID, Kind: m.kind, Title: it.Title, Elapsed: elapsed})

	case errors.Is(err, context.Canceled):
		m.items[i].State = StateQueued

	default:
		m.items[i].State = StateError
		m.items[i].Error = err.Error()
		delete(m.started, item.ID)
		utils.Debug("%s %q failed: %v", m.kind, item.Title, err)
		m.emit(ItemErrorMsg{ItemID: item.ID, Kind: m.kind, Title: item.Title, Err: err, Message: err.Error()})
	}

	m.persistLocked()
	m.publishLocked()
}

func (m *Manager) workerExited(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.active--
	// An item may have been added after this worker's last claim.
	m.spawnLocked()
	if m.active > 0 {
		return
	}
	m.gen++
	m.cancel()
	m.cancel = nil
	m.running = false
	utils.Debug("%s downloader idle, %d items left in queue", m.kind, len(m.items))
	m.publishLocked()
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.items {
		if m.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) countLocked(state ItemState) int {
	n := 0
	for i := range m.items {
		if m.items[i].State == state {
			n++
		}
	}
	return n
}

func (m *Manager) snapshotLocked() []Item {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) publishLocked() {
	m.queueSig.Set(m.snapshotLocked())
	m.runningSig.Set(m.running)
}

func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	if err := m.store.SaveQueue(m.kind, m.snapshotLocked()); err != nil {
		utils.Debug("failed to persist %s queue: %v", m.kind, err)
	}
}

// emit sends an event without blocking; events are dropped when nobody keeps up.
func (m *Manager) emit(msg any) {
	if m.events == nil {
		return
	}
	select {
	case m.events <- msg:
	default:
	}
}
