package txqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHIDrainedBeforeLO(t *testing.T) {
	q := New(4, 0, time.Millisecond)
	q.Push(Entry{Payload: []byte("lo"), Priority: LO})
	q.Push(Entry{Payload: []byte("hi"), Priority: HI})

	ctx := context.Background()
	e, ok := q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "hi", string(e.Payload))

	e, ok = q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "lo", string(e.Payload))
}

func TestBackPressureDropsLOFirst(t *testing.T) {
	q := New(1, 0, time.Millisecond)
	q.Push(Entry{Payload: []byte("lo1"), Priority: LO})
	q.Push(Entry{Payload: []byte("hi1"), Priority: HI})
	// Both lanes full now; pushing another HI evicts the LO entry
	// first. That frees no room in the HI lane, so the oldest HI entry
	// is evicted next and hi2 takes its place.
	q.Push(Entry{Payload: []byte("hi2"), Priority: HI})

	stats := q.Stats()
	require.Equal(t, uint64(1), stats.DroppedLO)
	require.Equal(t, uint64(1), stats.DroppedHI)

	ctx := context.Background()
	e, ok := q.Dequeue(ctx)
	require.True(t, ok)
	require.Equal(t, "hi2", string(e.Payload))
}

func TestFratricideBypassesWait(t *testing.T) {
	q := New(4, 0, time.Hour) // persistence=0 means Wait would never return quickly
	start := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Wait(ctx, Entry{Fratricide: true})
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitDefersWhileChannelBusy(t *testing.T) {
	busy := true
	q := New(4, 255, 5*time.Millisecond, WithDCD(func() bool { return busy }))
	done := make(chan struct{})
	go func() {
		q.Wait(context.Background(), Entry{})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while channel was busy")
	case <-time.After(30 * time.Millisecond):
	}

	busy = false
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return once channel went clear")
	}
}

func TestWaitFallsBackToCSMAPastTXDelayMax(t *testing.T) {
	q := New(4, 255, 2*time.Millisecond,
		WithDCD(func() bool { return true }), // stays busy forever
		WithTXDelayMax(10*time.Millisecond),
	)
	start := time.Now()
	q.Wait(context.Background(), Entry{})
	require.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestDequeueUnblocksOnShutdown(t *testing.T) {
	q := New(4, 0, time.Millisecond)
	done := make(chan struct{})
	go func() {
		_, ok := q.Dequeue(context.Background())
		require.False(t, ok)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	q.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock on shutdown")
	}
}
