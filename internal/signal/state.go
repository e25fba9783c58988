// Package signal provides an observable value whose subscribers only ever see
// the most recent state.
package signal

import (
	"context"
	"sync"
)

// Reader is the read side of a State.
type Reader[T any] interface {
	// Value returns the current value.
	Value() T

	// Subscribe returns a channel that receives the current value right away
	// and every later change. Values are conflated: a subscriber that falls
	// behind only sees the newest one. The channel is closed when ctx is done
	// or the State is closed.
	Subscribe(ctx context.Context) <-chan T
}

// State holds a value that changes over time.
type State[T any] struct {
	mu        sync.Mutex
	value     T
	equal     func(a, b T) bool
	listeners map[chan T]struct{}
	closed    bool
	done      chan struct{}
}

// New creates a State. equal may be nil, in which case every Set is
// delivered to subscribers.
func New[T any](initial T, equal func(a, b T) bool) *State[T] {
	return &State[T]{
		value:     initial,
		equal:     equal,
		listeners: make(map[chan T]struct{}),
		done:      make(chan struct{}),
	}
}

// NewComparable creates a State that skips Set calls equal to the current value.
func NewComparable[T comparable](initial T) *State[T] {
	return New(initial, func(a, b T) bool { return a == b })
}

func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores v and notifies subscribers. It is a no-op when v equals the
// current value or the State is closed.
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(v)
}

// Update applies fn to the current value atomically.
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(fn(s.value))
}

func (s *State[T]) setLocked(v T) {
	if s.closed {
		return
	}
	if s.equal != nil && s.equal(s.value, v) {
		return
	}
	s.value = v
	for ch := range s.listeners {
		offer(ch, v)
	}
}

// offer replaces whatever is buffered in ch with v. Only the State sends on
// ch and it does so under its mutex, so the final send never blocks.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}

func (s *State[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	ch <- s.value
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.listeners[ch]; ok {
			delete(s.listeners, ch)
			close(ch)
		}
	}()

	return ch
}

// Close closes every subscriber channel. Later Set calls are ignored and
// later subscribers get an already-closed channel.
func (s *State[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	for ch := range s.listeners {
		delete(s.listeners, ch)
		close(ch)
	}
}
