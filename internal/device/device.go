// Package device models a fingerprint reader as seen through the fprintd
// protocol: claims, enrollment and verification sessions, and the scripted
// status events a test harness programs into it.
//
// A Device is only ever touched on its registry's main loop. The exported
// methods hop onto the loop and are safe to call from any goroutine.
package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/fprint"
	"github.com/deepin-community/fprintd/internal/logger"
)

const PathPrefix = "/net/reactivated/Fprint/Device/"

// ID identifies a device for the lifetime of its registry. Zero is never assigned.
type ID int

func (id ID) Path() string {
	return PathPrefix + strconv.Itoa(int(id))
}

func (id ID) String() string { return id.Path() }

// ParseID accepts an object path or a bare number.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: invalid empty path", fprint.ErrInvalidArgument)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, PathPrefix))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid device path %q", fprint.ErrInvalidArgument, s)
	}
	return ID(n), nil
}

// Spec describes a reader to add.
type Spec struct {
	Name              string          `json:"name" yaml:"name"`
	NumEnrollStages   int             `json:"num_enroll_stages" yaml:"num_enroll_stages"`
	ScanType          fprint.ScanType `json:"scan_type" yaml:"scan_type"`
	HasIdentification bool            `json:"has_identification" yaml:"has_identification"`
}

func (s Spec) Validate() error {
	if !s.ScanType.Valid() {
		return fmt.Errorf("%w: invalid scan_type '%s'", fprint.ErrInvalidArgument, s.ScanType)
	}
	if s.NumEnrollStages <= 0 {
		return fmt.Errorf("%w: invalid num_enroll_stages '%d'", fprint.ErrInvalidArgument, s.NumEnrollStages)
	}
	return nil
}

type Device struct {
	id   ID
	path string
	reg  *Registry
	spec Spec

	claimedUser    string
	action         fprint.Action
	selectedFinger string
	enrollFinger   string
	session        string
	fingerPresent  bool
	fingerNeeded   bool
	neededBy       string
	enrolled       enrollments
	script         []ScriptEntry
	removed        bool
}

func (d *Device) ID() ID       { return d.id }
func (d *Device) Path() string { return d.path }

// call runs fn on the loop, failing when the device has been removed meanwhile.
func (d *Device) call(fn func() error) error {
	var err error
	if lerr := d.reg.loop.Do(func() {
		if d.removed {
			err = fmt.Errorf("%w: %s was removed", fprint.ErrNoSuchDevice, d.path)
			return
		}
		err = fn()
	}); lerr != nil {
		return lerr
	}
	return err
}

func (d *Device) emit(ev events.Event) {
	ev.Device = d.path
	d.reg.sink.Emit(ev)
}

func (d *Device) emitProperty(name string, value any) {
	d.emit(events.Event{Signal: events.PropertyChanged, Property: name, Value: value})
}

func errNotClaimed() error {
	return fmt.Errorf("%w: Device was not claimed before use", fprint.ErrClaimDevice)
}

func (d *Device) Claim(user string) error {
	return d.call(func() error {
		if d.claimedUser != "" {
			return fmt.Errorf("%w: Device already in use by %s", fprint.ErrAlreadyInUse, d.claimedUser)
		}
		if user == "" {
			return fmt.Errorf("%w: invalid empty user", fprint.ErrInvalidArgument)
		}
		d.claimedUser = user
		logger.Info("device %s claimed by %s", d.path, user)
		return nil
	})
}

// Release drops the claim together with the running action and the script.
func (d *Device) Release() error {
	return d.call(func() error {
		if d.claimedUser == "" {
			return errNotClaimed()
		}
		d.endAction()
		if n := len(d.script); n > 0 {
			logger.Debug("device %s: dropping %d unused script entries", d.path, n)
			d.script = nil
		}
		logger.Info("device %s released by %s", d.path, d.claimedUser)
		d.claimedUser = ""
		return nil
	})
}

func (d *Device) EnrollStart(finger string) error {
	return d.call(func() error {
		if !fprint.ValidFinger(finger) {
			return fmt.Errorf("%w: Invalid finger name '%s'", fprint.ErrInvalidFingername, finger)
		}
		if d.claimedUser == "" {
			return errNotClaimed()
		}
		if d.action != fprint.ActionNone {
			return fmt.Errorf("%w: Action '%s' already in progress", fprint.ErrAlreadyInUse, d.action)
		}
		session := d.beginAction(fprint.ActionEnroll)
		d.enrollFinger = finger
		logger.Debug("device %s: %s enrolling %s", d.path, d.claimedUser, finger)
		if err := d.runScript(session, events.EnrollStatus); err != nil {
			d.abortAction(session)
			return err
		}
		return nil
	})
}

func (d *Device) EnrollStop() error {
	return d.call(func() error {
		if d.action != fprint.ActionEnroll {
			return fmt.Errorf("%w: No enrollment to stop", fprint.ErrNoActionInProgress)
		}
		d.endAction()
		return nil
	})
}

func (d *Device) VerifyStart(finger string) error {
	return d.call(func() error {
		if d.claimedUser == "" {
			return errNotClaimed()
		}
		prints := d.enrolled.list(d.claimedUser)
		if len(prints) == 0 {
			return fmt.Errorf("%w: No enrolled prints for user '%s'", fprint.ErrNoEnrolledPrints, d.claimedUser)
		}
		if finger == "" {
			return fmt.Errorf("%w: Invalid empty finger_name", fprint.ErrInvalidArgument)
		}
		if finger != fprint.AnyFinger && !d.enrolled.contains(d.claimedUser, finger) {
			return fmt.Errorf("%w: Finger '%s' not enrolled", fprint.ErrFingerNotEnrolled, finger)
		}
		if d.action != fprint.ActionNone {
			return fmt.Errorf("%w: Action '%s' already in progress", fprint.ErrAlreadyInUse, d.action)
		}

		if finger == fprint.AnyFinger && !d.spec.HasIdentification {
			finger = prints[0]
		}
		session := d.beginAction(fprint.ActionVerify)
		d.selectedFinger = finger
		selected := finger
		d.reg.loop.AfterReturn(session, func() {
			d.emit(events.Event{Signal: events.FingerSelected, Finger: selected})
		})
		logger.Debug("device %s: %s verifying %s", d.path, d.claimedUser, finger)

		if err := d.runScript(session, events.VerifyStatus); err != nil {
			d.abortAction(session)
			return err
		}
		return nil
	})
}

func (d *Device) VerifyStop() error {
	return d.call(func() error {
		if d.action != fprint.ActionVerify {
			return fmt.Errorf("%w: No verification to stop", fprint.ErrNoActionInProgress)
		}
		d.endAction()
		return nil
	})
}

func (d *Device) ListEnrolledFingers(user string) ([]string, error) {
	var out []string
	err := d.call(func() error {
		if !d.enrolled.has(user) {
			return fmt.Errorf("%w: No enrolled prints in device %s for user %s", fprint.ErrNoEnrolledPrints, d.path, user)
		}
		out = d.enrolled.list(user)
		return nil
	})
	return out, err
}

func (d *Device) DeleteEnrolledFingers(user string) error {
	return d.call(func() error {
		d.enrolled.set(user, nil)
		d.persist()
		return nil
	})
}

// DeleteEnrolledFingers2 deletes the prints of the claiming user.
func (d *Device) DeleteEnrolledFingers2() error {
	return d.call(func() error {
		if d.claimedUser == "" {
			return errNotClaimed()
		}
		if len(d.enrolled[d.claimedUser]) == 0 {
			return fmt.Errorf("%w: No enrolled prints in device %s for user %s", fprint.ErrNoEnrolledPrints, d.path, d.claimedUser)
		}
		d.enrolled.set(d.claimedUser, nil)
		d.persist()
		return nil
	})
}

// beginAction opens a new session for act. Every task the session schedules is
// queued under the returned key so that ending the session revokes them all.
func (d *Device) beginAction(act fprint.Action) string {
	d.action = act
	d.session = d.path + "#" + uuid.NewString()
	if !d.fingerNeeded {
		d.fingerNeeded = true
		d.neededBy = d.session
		d.reg.loop.AfterReturn(d.session, func() {
			d.emitProperty(events.PropFingerNeeded, true)
		})
	}
	return d.session
}

// abortAction undoes a start that failed part way. Listeners never saw the
// session, so nothing is announced.
func (d *Device) abortAction(session string) {
	if d.session != session {
		return
	}
	d.reg.loop.Cancel(session)
	d.session = ""
	d.action = fprint.ActionNone
	d.selectedFinger = ""
	d.enrollFinger = ""
	if d.neededBy == session {
		d.fingerNeeded = false
		d.neededBy = ""
	}
}

func (d *Device) endAction() {
	if d.session != "" {
		if n := d.reg.loop.Cancel(d.session); n > 0 {
			logger.Debug("device %s: revoked %d pending emissions", d.path, n)
		}
		d.session = ""
	}
	d.action = fprint.ActionNone
	d.selectedFinger = ""
	d.enrollFinger = ""
	d.neededBy = ""
	if d.fingerNeeded {
		d.fingerNeeded = false
		d.emitProperty(events.PropFingerNeeded, false)
	}
}
