// Package events carries the signals a simulated device emits to its observers.
package events

import (
	"sync"

	"github.com/deepin-community/fprintd/internal/logger"
)

type Signal string

const (
	FingerSelected  Signal = "VerifyFingerSelected"
	EnrollStatus    Signal = "EnrollStatus"
	VerifyStatus    Signal = "VerifyStatus"
	PropertyChanged Signal = "PropertiesChanged"
)

// Observable device properties.
const (
	PropFingerNeeded    = "finger-needed"
	PropFingerPresent   = "finger-present"
	PropNumEnrollStages = "num-enroll-stages"
	PropScanType        = "scan-type"
)

// Event is one emitted signal. Only the fields relevant to Signal are set.
type Event struct {
	Device   string `json:"device"`
	Signal   Signal `json:"signal"`
	Finger   string `json:"finger,omitempty"`
	Result   string `json:"result,omitempty"`
	Done     bool   `json:"done,omitempty"`
	Property string `json:"property,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// Sink receives events. Emit is called from the device loop and must not block.
type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans one event out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) {
		for _, s := range sinks {
			s.Emit(ev)
		}
	})
}

// Bus is a Sink that forwards events to any number of subscribers. A subscriber
// that falls behind loses events rather than stalling the device loop.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscription
}

type subscription struct {
	ch     chan Event
	filter string
}

func NewBus() *Bus {
	return &Bus{subs: map[int]*subscription{}}
}

// Subscribe registers a listener. An empty device filter matches every device.
// The returned cancel function closes the channel.
func (b *Bus) Subscribe(device string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	sub := &subscription{ch: make(chan Event, buffer), filter: device}
	b.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(sub.ch)
		})
	}
}

func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		if sub.filter != "" && sub.filter != ev.Device {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			logger.Warn("event bus: subscriber %d is full, dropping %s for %s", id, ev.Signal, ev.Device)
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
