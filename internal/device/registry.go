package device

import (
	"fmt"
	"os"

	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/fprint"
	"github.com/deepin-community/fprintd/internal/logger"
	"github.com/deepin-community/fprintd/internal/mainloop"
)

// Registry owns the devices of one simulated daemon. Devices are kept in the
// order they were added; the first one is the default device.
type Registry struct {
	loop  *mainloop.Loop
	sink  events.Sink
	store PrintStore
	exit  func()

	lastID  ID
	devices []*Device
}

type Option func(*Registry)

// WithStore persists enrolled prints through s.
func WithStore(s PrintStore) Option {
	return func(r *Registry) { r.store = s }
}

// WithExit replaces what happens when a script asks the daemon to quit.
func WithExit(fn func()) Option {
	return func(r *Registry) { r.exit = fn }
}

func NewRegistry(loop *mainloop.Loop, sink events.Sink, opts ...Option) *Registry {
	if sink == nil {
		sink = events.Discard
	}
	r := &Registry{
		loop: loop,
		sink: sink,
		exit: func() { os.Exit(0) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) AddDevice(spec Spec) (ID, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	// Disk access happens before hopping onto the loop.
	var stored map[string][]string
	if r.store != nil {
		p, err := r.store.Load(spec.Name)
		if err != nil {
			logger.Warn("loading enrolled prints for %q failed: %v", spec.Name, err)
		}
		stored = p
	}

	var id ID
	err := r.loop.Do(func() {
		r.lastID++
		id = r.lastID
		d := &Device{
			id:       id,
			path:     id.Path(),
			reg:      r,
			spec:     spec,
			enrolled: enrollments{},
		}
		for user, fingers := range stored {
			d.enrolled.set(user, validFingers(fingers))
		}
		r.devices = append(r.devices, d)
	})
	if err != nil {
		return 0, err
	}
	logger.Info("added device %s (%s, %d stages, %s)", id.Path(), spec.Name, spec.NumEnrollStages, spec.ScanType)
	return id, nil
}

// RemoveDevice drops the device at once, whoever holds it. Pending emissions
// of its session are revoked.
func (r *Registry) RemoveDevice(id ID) error {
	if id <= 0 {
		return fmt.Errorf("%w: Invalid empty path", fprint.ErrInvalidArgument)
	}
	var err error
	if lerr := r.loop.Do(func() {
		for i, d := range r.devices {
			if d.id != id {
				continue
			}
			if d.session != "" {
				r.loop.Cancel(d.session)
				d.session = ""
			}
			d.removed = true
			r.devices = append(r.devices[:i], r.devices[i+1:]...)
			return
		}
		err = fmt.Errorf("%w: Unknown device %s", fprint.ErrInvalidArgument, id.Path())
	}); lerr != nil {
		return lerr
	}
	if err == nil {
		logger.Info("removed device %s", id.Path())
	}
	return err
}

func (r *Registry) ListDevices() ([]ID, error) {
	var out []ID
	err := r.loop.Do(func() {
		out = make([]ID, 0, len(r.devices))
		for _, d := range r.devices {
			out = append(out, d.id)
		}
	})
	return out, err
}

func (r *Registry) DefaultDevice() (ID, error) {
	var id ID
	if err := r.loop.Do(func() {
		if len(r.devices) > 0 {
			id = r.devices[0].id
		}
	}); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: No devices available", fprint.ErrNoSuchDevice)
	}
	return id, nil
}

// Device returns the live device for id.
func (r *Registry) Device(id ID) (*Device, error) {
	var out *Device
	if err := r.loop.Do(func() {
		for _, d := range r.devices {
			if d.id == id {
				out = d
				return
			}
		}
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s", fprint.ErrNoSuchDevice, id.Path())
	}
	return out, nil
}

// Lookup resolves an object path to a live device.
func (r *Registry) Lookup(path string) (*Device, error) {
	id, err := ParseID(path)
	if err != nil {
		return nil, err
	}
	return r.Device(id)
}

// Snapshot returns the state of every device in registration order.
func (r *Registry) Snapshot() ([]State, error) {
	var out []State
	err := r.loop.Do(func() {
		for _, d := range r.devices {
			out = append(out, d.state())
		}
	})
	return out, err
}

func validFingers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if fprint.ValidFinger(f) {
			out = append(out, f)
		}
	}
	return out
}
