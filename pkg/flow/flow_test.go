package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeStartsWithCurrent(t *testing.T) {
	f := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Subscribe(ctx)
	assert.Equal(t, 1, <-ch)

	f.Store(2)
	assert.Equal(t, 2, <-ch)
	assert.Equal(t, 2, f.Load())
}

func TestConflation(t *testing.T) {
	f := New("a")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Subscribe(ctx)
	f.Store("b")
	f.Store("c")
	assert.Equal(t, "c", <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %q", v)
	default:
	}
}

func TestEverySubscriberSeesUpdate(t *testing.T) {
	f := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := f.Subscribe(ctx)
	b := f.Subscribe(ctx)
	<-a
	<-b
	f.Update(func(v int) int { return v + 5 })
	assert.Equal(t, 5, <-a)
	assert.Equal(t, 5, <-b)
}

func TestCancelClosesChannel(t *testing.T) {
	f := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch := f.Subscribe(ctx)
	<-ch
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// no subscriber left to block on
	f.Store(1)
}
