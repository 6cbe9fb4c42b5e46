package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/fprint"
	"github.com/deepin-community/fprintd/internal/mainloop"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
	hook   func(events.Event)
}

func (s *recordingSink) Emit(ev events.Event) {
	if s.hook != nil {
		s.hook(ev)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) all() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

func (s *recordingSink) of(sig events.Signal) []events.Event {
	var out []events.Event
	for _, ev := range s.all() {
		if ev.Signal == sig {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSink) results(sig events.Signal) []string {
	var out []string
	for _, ev := range s.of(sig) {
		out = append(out, ev.Result)
	}
	return out
}

func (s *recordingSink) waitFor(t *testing.T, sig events.Signal, n int) []events.Event {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.of(sig)) >= n }, 2*time.Second, time.Millisecond,
		"waiting for %d %s events", n, sig)
	return s.of(sig)
}

type memStore struct {
	mu     sync.Mutex
	prints map[string]map[string][]string
	saves  int
}

func (m *memStore) Load(device string) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prints[device], nil
}

func (m *memStore) Save(device string, prints map[string][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prints == nil {
		m.prints = map[string]map[string][]string{}
	}
	m.prints[device] = prints
	m.saves++
	return nil
}

type fixture struct {
	reg  *Registry
	sink *recordingSink
	loop *mainloop.Loop
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	loop := mainloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	sink := &recordingSink{}
	return &fixture{reg: NewRegistry(loop, sink, opts...), sink: sink, loop: loop}
}

func (f *fixture) add(t *testing.T, spec Spec) *Device {
	t.Helper()
	id, err := f.reg.AddDevice(spec)
	require.NoError(t, err)
	d, err := f.reg.Device(id)
	require.NoError(t, err)
	return d
}

func pressSpec() Spec {
	return Spec{Name: "Fake Press Reader", NumEnrollStages: 5, ScanType: fprint.ScanPress}
}

// claimedWithPrints returns a device claimed by user with fingers enrolled.
func (f *fixture) claimedWithPrints(t *testing.T, spec Spec, user string, fingers ...string) *Device {
	t.Helper()
	d := f.add(t, spec)
	if len(fingers) > 0 {
		require.NoError(t, d.SetEnrolledFingers(user, fingers))
	}
	require.NoError(t, d.Claim(user))
	return d
}
