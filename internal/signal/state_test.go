package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestState_SubscribeReceivesCurrentValue(t *testing.T) {
	s := NewComparable(7)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	assert.Equal(t, 7, recv(t, ch))
}

func TestState_SetNotifiesSubscribers(t *testing.T) {
	s := NewComparable("a")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := s.Subscribe(ctx)
	ch2 := s.Subscribe(ctx)
	recv(t, ch1)
	recv(t, ch2)

	s.Set("b")
	assert.Equal(t, "b", recv(t, ch1))
	assert.Equal(t, "b", recv(t, ch2))
	assert.Equal(t, "b", s.Value())
}

func TestState_ConflatesSlowSubscriber(t *testing.T) {
	s := NewComparable(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	for i := 1; i <= 100; i++ {
		s.Set(i)
	}

	// Only the newest value is buffered.
	assert.Equal(t, 100, recv(t, ch))
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestState_EqualValueIsNotRedelivered(t *testing.T) {
	s := NewComparable(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	recv(t, ch)

	s.Set(true)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v after setting an equal value", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestState_NilEqualAlwaysDelivers(t *testing.T) {
	s := New([]int{1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	recv(t, ch)

	s.Set([]int{1})
	assert.Equal(t, []int{1}, recv(t, ch))
}

func TestState_Update(t *testing.T) {
	s := NewComparable(1)
	s.Update(func(v int) int { return v + 41 })
	assert.Equal(t, 42, s.Value())
}

func TestState_CancelClosesChannel(t *testing.T) {
	s := NewComparable(0)
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx)
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Set after unsubscribe must not panic.
	s.Set(1)
}

func TestState_Close(t *testing.T) {
	s := NewComparable(0)
	ch := s.Subscribe(context.Background())
	recv(t, ch)

	s.Close()
	_, ok := <-ch
	assert.False(t, ok)

	s.Set(5)
	assert.Equal(t, 0, s.Value(), "Set after Close should be ignored")

	late := s.Subscribe(context.Background())
	_, ok = <-late
	assert.False(t, ok)

	s.Close()
}
