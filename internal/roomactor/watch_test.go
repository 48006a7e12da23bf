package roomactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchFirstChangedSeesCurrentValue(t *testing.T) {
	w := NewWatch(42)
	sub := w.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := sub.Changed(ctx)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestWatchBlocksUntilNextPublish(t *testing.T) {
	w := NewWatch(0)
	sub := w.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := sub.Changed(ctx)
	require.NoError(t, err)

	done := make(chan int, 1)
	go func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
		defer cancel2()
		v, err := sub.Changed(ctx2)
		require.NoError(t, err)
		done <- v
	}()

	time.Sleep(20 * time.Millisecond)
	w.Publish(7)

	select {
	case v := <-done:
		require.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Changed to observe publish")
	}
}

func TestWatchCoalescesIntermediateValues(t *testing.T) {
	w := NewWatch(0)
	sub := w.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := sub.Changed(ctx)
	require.NoError(t, err)

	w.Publish(1)
	w.Publish(2)
	w.Publish(3)

	v, err := sub.Changed(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

func TestWatchContextCancellation(t *testing.T) {
	w := NewWatch(0)
	sub := w.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := sub.Changed(ctx)
	require.NoError(t, err)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	_, err = sub.Changed(ctx2)
	require.Error(t, err)
}
