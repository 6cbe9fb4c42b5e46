package mainloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, s)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func TestDoRunsOnLoop(t *testing.T) {
	l := startLoop(t)
	n := 0
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Do(func() { n++ }))
	}
	require.Equal(t, 10, n)
}

func TestDoAfterStop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()
	<-l.Done()
	require.ErrorIs(t, l.Do(func() {}), ErrStopped)
}

func TestAfterKeepsScheduleOrder(t *testing.T) {
	l := startLoop(t)
	rec := &recorder{}
	require.NoError(t, l.Do(func() {
		l.After("s", 0, func() { rec.add("a") })
		l.After("s", 0, func() { rec.add("b") })
		l.After("s", 20*time.Millisecond, func() { rec.add("d") })
		l.After("s", 5*time.Millisecond, func() { rec.add("c") })
	}))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"a", "b", "c", "d"}, rec.snapshot())
}

func TestCancelRevokesPendingTasks(t *testing.T) {
	l := startLoop(t)
	rec := &recorder{}
	var revoked, pending int
	require.NoError(t, l.Do(func() {
		l.After("s1", 10*time.Millisecond, func() { rec.add("s1") })
		l.After("s1", 20*time.Millisecond, func() { rec.add("s1") })
		l.After("s2", 10*time.Millisecond, func() { rec.add("s2") })
		pending = l.Pending("s1")
		revoked = l.Cancel("s1")
	}))
	require.Equal(t, 2, pending)
	require.Equal(t, 2, revoked)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, []string{"s2"}, rec.snapshot())
}

func TestAfterReturnRunsAfterCaller(t *testing.T) {
	l := startLoop(t)
	rec := &recorder{}
	require.NoError(t, l.Do(func() {
		l.AfterReturn("s", func() { rec.add("deferred") })
		l.After("s", 0, func() { rec.add("timer") })
		rec.add("call")
	}))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"call", "deferred", "timer"}, rec.snapshot())
}

func TestAfterReturnCancelled(t *testing.T) {
	l := startLoop(t)
	rec := &recorder{}
	require.NoError(t, l.Do(func() {
		l.AfterReturn("s", func() { rec.add("deferred") })
		l.Cancel("s")
	}))
	require.NoError(t, l.Do(func() {}))
	require.Empty(t, rec.snapshot())
}

func TestSleepKeepsDispatching(t *testing.T) {
	l := startLoop(t)
	rec := &recorder{}
	released := make(chan struct{})
	go func() {
		_ = l.Do(func() {
			l.After("s", 5*time.Millisecond, func() { rec.add("timer") })
			l.Sleep(60 * time.Millisecond)
			rec.add("woke")
		})
		close(released)
	}()

	// A second caller is served while the first one sleeps.
	time.Sleep(15 * time.Millisecond)
	require.NoError(t, l.Do(func() { rec.add("other call") }))

	<-released
	require.Equal(t, []string{"timer", "other call", "woke"}, rec.snapshot())
}

func TestSleepZeroReturns(t *testing.T) {
	l := startLoop(t)
	require.NoError(t, l.Do(func() { l.Sleep(0) }))
}
