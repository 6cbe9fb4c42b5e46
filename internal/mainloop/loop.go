// Package mainloop runs every state mutation of a simulated daemon on one
// goroutine, together with a cancellable queue of delayed tasks.
//
// Calls enter through Do and run to completion before the next call or timer is
// dispatched, except while the running call is inside Sleep: a sleeping call keeps
// the loop iterating, so timers fire and other calls are served until the wait ends.
package mainloop

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrStopped = errors.New("main loop is not running")

// Task is a unit of work queued on the loop.
type Task struct {
	key   string
	due   time.Time
	seq   uint64
	fn    func()
	done  bool
	index int
}

func (t *Task) Key() string { return t.key }

type Loop struct {
	calls chan func()
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	// Everything below is owned by the loop goroutine.
	ctxDone  <-chan struct{}
	tasks    taskHeap
	byKey    map[string][]*Task
	deferred []*Task
	depth    int
	seq      uint64
}

func New() *Loop {
	return &Loop{
		calls: make(chan func()),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		byKey: map[string][]*Task{},
	}
}

// Run dispatches calls and tasks until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	l.ctxDone = ctx.Done()
	for l.step(nil) {
	}
}

func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Do runs fn on the loop and waits for it to return. Tasks queued by fn with
// AfterReturn run once the caller has been released.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	call := func() {
		saved := l.deferred
		l.deferred = nil
		l.depth++
		fn()
		l.depth--
		close(finished)
		deferred := l.deferred
		l.deferred = saved
		for _, t := range deferred {
			l.run(t)
		}
	}
	select {
	case l.calls <- call:
	case <-l.done:
		return ErrStopped
	}
	<-finished
	return nil
}

// After schedules fn to run d from now. Tasks due at the same instant run in
// the order they were scheduled. Must be called on the loop.
func (l *Loop) After(key string, d time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	t := l.newTask(key, fn)
	t.due = time.Now().Add(d)
	heap.Push(&l.tasks, t)
	return t
}

// AfterReturn queues fn to run right after the current Do call has released
// its caller. Outside of a call it behaves like After with no delay.
func (l *Loop) AfterReturn(key string, fn func()) *Task {
	if l.depth == 0 {
		return l.After(key, 0, fn)
	}
	t := l.newTask(key, fn)
	t.index = -1
	l.deferred = append(l.deferred, t)
	return t
}

// Cancel revokes every pending task queued under key and reports how many
// were revoked. Must be called on the loop.
func (l *Loop) Cancel(key string) int {
	n := 0
	for _, t := range l.byKey[key] {
		if t.done {
			continue
		}
		t.done = true
		if t.index >= 0 {
			heap.Remove(&l.tasks, t.index)
		}
		n++
	}
	delete(l.byKey, key)
	return n
}

// Pending reports how many tasks are still queued under key.
func (l *Loop) Pending(key string) int {
	n := 0
	for _, t := range l.byKey[key] {
		if !t.done {
			n++
		}
	}
	return n
}

// Sleep blocks the calling task for d while the loop keeps dispatching other
// calls and due tasks. Must be called on the loop.
func (l *Loop) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	timer := time.NewTimer(d)
	defer timer.Stop()
	for time.Now().Before(deadline) {
		if !l.step(timer.C) {
			return
		}
	}
}

func (l *Loop) newTask(key string, fn func()) *Task {
	l.seq++
	t := &Task{key: key, seq: l.seq, fn: fn}
	l.byKey[key] = append(l.byKey[key], t)
	return t
}

func (l *Loop) run(t *Task) {
	if t.done {
		return
	}
	t.done = true
	l.forget(t)
	t.fn()
}

func (l *Loop) forget(t *Task) {
	list := l.byKey[t.key]
	for i, other := range list {
		if other == t {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(l.byKey, t.key)
		return
	}
	l.byKey[t.key] = list
}

// step dispatches one due task or call, waiting for one if needed. It returns
// false when the loop is stopping or until fires.
func (l *Loop) step(until <-chan time.Time) bool {
	if len(l.tasks) > 0 && !l.tasks[0].due.After(time.Now()) {
		t := heap.Pop(&l.tasks).(*Task)
		l.run(t)
		return true
	}

	var wake <-chan time.Time
	if len(l.tasks) > 0 {
		timer := time.NewTimer(time.Until(l.tasks[0].due))
		defer timer.Stop()
		wake = timer.C
	}

	select {
	case <-l.stop:
		return false
	case <-l.ctxDone:
		return false
	case <-until:
		return false
	case call := <-l.calls:
		call()
		return true
	case <-wake:
		return true
	}
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
