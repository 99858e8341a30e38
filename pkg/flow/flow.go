// Package flow implements a value that broadcasts its latest state.
//
// Subscribers receive the current value immediately and then every update.
// Delivery is conflated: a slow subscriber only ever sees the newest value.
package flow

import (
	"context"
	"sync"
)

type Value[T any] struct {
	mu   sync.Mutex
	v    T
	subs map[chan T]struct{}
}

func New[T any](initial T) *Value[T] {
	return &Value[T]{
		v:    initial,
		subs: make(map[chan T]struct{}),
	}
}

func (f *Value[T]) Load() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.v
}

func (f *Value[T]) Store(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v = v
	for ch := range f.subs {
		offer(ch, v)
	}
}

// Update applies fn to the current value atomically and broadcasts the result
func (f *Value[T]) Update(fn func(T) T) T {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v = fn(f.v)
	for ch := range f.subs {
		offer(ch, f.v)
	}
	return f.v
}

// Subscribe returns a channel that is closed once ctx is done
func (f *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	f.mu.Lock()
	ch <- f.v
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch
}

// offer replaces any undelivered value. Callers hold the lock, so there is
// a single sender per channel and the send never blocks.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}

// Emit delivers v on a channel of capacity one owned by the caller,
// dropping a value the reader has not picked up yet.
func Emit[T any](ch chan T, v T) {
	offer(ch, v)
}
