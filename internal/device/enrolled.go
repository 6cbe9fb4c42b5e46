package device

import "github.com/deepin-community/fprintd/internal/logger"

// PrintStore persists the enrolled-fingers table of a device, keyed by the
// device name so that a re-added reader finds its prints again.
type PrintStore interface {
	Load(device string) (map[string][]string, error)
	Save(device string, prints map[string][]string) error
}

// enrollments maps a user to the fingers enrolled for them, in enrollment order.
// A user with an entry but no fingers is distinct from a user without an entry.
type enrollments map[string][]string

func (e enrollments) has(user string) bool {
	_, ok := e[user]
	return ok
}

func (e enrollments) list(user string) []string {
	return append([]string{}, e[user]...)
}

func (e enrollments) contains(user, finger string) bool {
	for _, f := range e[user] {
		if f == finger {
			return true
		}
	}
	return false
}

func (e enrollments) set(user string, fingers []string) {
	out := make([]string, 0, len(fingers))
	seen := map[string]bool{}
	for _, f := range fingers {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	e[user] = out
}

func (e enrollments) add(user, finger string) bool {
	if e.contains(user, finger) {
		return false
	}
	e[user] = append(e[user], finger)
	return true
}

func (e enrollments) clone() map[string][]string {
	out := make(map[string][]string, len(e))
	for u, f := range e {
		out[u] = append([]string{}, f...)
	}
	return out
}

func (d *Device) persist() {
	if d.reg.store == nil {
		return
	}
	if err := d.reg.store.Save(d.spec.Name, d.enrolled.clone()); err != nil {
		logger.Error("device %s: saving enrolled prints failed: %v", d.path, err)
	}
}
