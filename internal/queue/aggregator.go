package queue

import (
	"context"
	"sync"

	"github.com/tsundoku-app/tsundoku/internal/signal"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// Source is a download subsystem as seen by the aggregator.
type Source[T any] interface {
	Running() signal.Reader[bool]
	Queue() signal.Reader[[]T]
}

// Aggregator merges two Sources into one Status signal. All four inputs are
// observed at once and the output always reflects the newest value of each.
type Aggregator struct {
	out *signal.State[Status]

	// subscribe is bound to the two sources at construction time so that
	// Aggregator itself does not need type parameters.
	subscribe func(ctx context.Context) inputs

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type inputs struct {
	runningA <-chan bool
	runningB <-chan bool
	sizeA    <-chan int
	sizeB    <-chan int
}

// NewAggregator creates an aggregator for a and b. The output starts at the
// value computed from the sources' current state.
func NewAggregator[A, B any](a Source[A], b Source[B]) *Aggregator {
	initial := Compute(a.Running().Value(), len(a.Queue().Value()), b.Running().Value(), len(b.Queue().Value()))
	return &Aggregator{
		out: signal.NewComparable(initial),
		subscribe: func(ctx context.Context) inputs {
			return inputs{
				runningA: a.Running().Subscribe(ctx),
				runningB: b.Running().Subscribe(ctx),
				sizeA:    sizes(ctx, a.Queue().Subscribe(ctx)),
				sizeB:    sizes(ctx, b.Queue().Subscribe(ctx)),
			}
		},
	}
}

// sizes maps a queue signal to its length, keeping the conflation of the
// upstream channel.
func sizes[T any](ctx context.Context, in <-chan []T) <-chan int {
	// Subscribe always buffers the current value, so this does not block.
	first, ok := <-in
	out := signal.NewComparable(len(first))
	if !ok {
		out.Close()
		return out.Subscribe(ctx)
	}
	go func() {
		defer out.Close()
		for items := range in {
			out.Set(len(items))
		}
	}()
	return out.Subscribe(ctx)
}

// Status is the combined queue status.
func (g *Aggregator) Status() signal.Reader[Status] {
	return g.out
}

// Run observes both sources until ctx is done or one of the sources closes.
// The output signal is closed on return.
func (g *Aggregator) Run(ctx context.Context) {
	defer g.out.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := g.subscribe(ctx)

	// The first receive on every input is its current value, so nothing is
	// computed until all four have reported once.
	var (
		runningA, runningB bool
		sizeA, sizeB       int
		seen               int
	)
	const (
		seenRunningA = 1 << iota
		seenRunningB
		seenSizeA
		seenSizeB
		seenAll = seenRunningA | seenRunningB | seenSizeA | seenSizeB
	)

	for {
		var ok bool
		select {
		case <-ctx.Done():
			return
		case runningA, ok = <-in.runningA:
			seen |= seenRunningA
		case runningB, ok = <-in.runningB:
			seen |= seenRunningB
		case sizeA, ok = <-in.sizeA:
			seen |= seenSizeA
		case sizeB, ok = <-in.sizeB:
			seen |= seenSizeB
		}
		if !ok {
			utils.Debug("queue aggregator: source closed, stopping")
			return
		}
		if seen != seenAll {
			continue
		}
		g.out.Set(Compute(runningA, sizeA, runningB, sizeB))
	}
}

// Start runs the aggregator in the background. Calling Start twice is a no-op.
func (g *Aggregator) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != nil {
		return
	}
	ctx, g.cancel = context.WithCancel(ctx)
	g.done = make(chan struct{})
	go func() {
		defer close(g.done)
		g.Run(ctx)
	}()
}

// Stop cancels a started aggregator and waits for it to exit.
func (g *Aggregator) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.mu.Unlock()
	if cancel == nil {
		g.out.Close()
		return
	}
	cancel()
	<-done
}
