package device

import (
	"fmt"

	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/fprint"
)

// Operations below are harness controls; the real daemon has no equivalent.

// SetEnrolledFingers replaces the prints of user.
func (d *Device) SetEnrolledFingers(user string, fingers []string) error {
	return d.call(func() error {
		for _, f := range fingers {
			if !fprint.ValidFinger(f) {
				return fmt.Errorf("%w: Invalid finger name '%s'", fprint.ErrInvalidArgument, f)
			}
		}
		d.enrolled.set(user, fingers)
		d.persist()
		return nil
	})
}

// SetClaimed forces the claim. An empty user releases the device without the
// checks Release performs.
func (d *Device) SetClaimed(user string) error {
	return d.call(func() error {
		if user == "" {
			d.endAction()
		}
		d.claimedUser = user
		return nil
	})
}

// SetVerifyScript replaces the programmed outcomes consumed by the next
// EnrollStart or VerifyStart.
func (d *Device) SetVerifyScript(script []ScriptEntry) error {
	return d.call(func() error {
		d.script = append([]ScriptEntry(nil), script...)
		return nil
	})
}

func (d *Device) HasIdentification() (bool, error) {
	var out bool
	err := d.call(func() error {
		out = d.spec.HasIdentification
		return nil
	})
	return out, err
}

func (d *Device) GetSelectedFinger() (string, error) {
	var out string
	err := d.call(func() error {
		if d.selectedFinger == "" {
			return fmt.Errorf("%w: Device is not verifying", fprint.ErrNoActionInProgress)
		}
		out = d.selectedFinger
		return nil
	})
	return out, err
}

func (d *Device) EmitVerifyStatus(result string, done bool) error {
	return d.call(func() error {
		if d.action != fprint.ActionVerify {
			return fmt.Errorf("%w: Cannot send verify statuses when not verifying", fprint.ErrInvalidArgument)
		}
		if !fprint.ValidVerifyStatus(result) {
			return fmt.Errorf("%w: Unknown verify status '%s'", fprint.ErrInvalidArgument, result)
		}
		d.emitStatus(events.VerifyStatus, result, done)
		return nil
	})
}

func (d *Device) EmitEnrollStatus(result string, done bool) error {
	return d.call(func() error {
		if d.action != fprint.ActionEnroll {
			return fmt.Errorf("%w: Cannot send enroll statuses when not enrolling", fprint.ErrInvalidArgument)
		}
		if !fprint.ValidEnrollStatus(result) {
			return fmt.Errorf("%w: Unknown enroll status '%s'", fprint.ErrInvalidArgument, result)
		}
		d.emitStatus(events.EnrollStatus, result, done)
		return nil
	})
}

// SetFingerStatus simulates a finger touching or leaving the sensor.
func (d *Device) SetFingerStatus(present, needed bool) error {
	return d.call(func() error {
		if d.fingerPresent != present {
			d.fingerPresent = present
			d.emitProperty(events.PropFingerPresent, present)
		}
		if d.fingerNeeded != needed {
			d.fingerNeeded = needed
			d.neededBy = ""
			d.emitProperty(events.PropFingerNeeded, needed)
		}
		return nil
	})
}

func (d *Device) SetScanType(scanType fprint.ScanType) error {
	return d.call(func() error {
		if !scanType.Valid() {
			return fmt.Errorf("%w: invalid scan_type '%s'", fprint.ErrInvalidArgument, scanType)
		}
		if d.spec.ScanType != scanType {
			d.spec.ScanType = scanType
			d.emitProperty(events.PropScanType, string(scanType))
		}
		return nil
	})
}

func (d *Device) SetNumEnrollStages(n int) error {
	return d.call(func() error {
		if n <= 0 {
			return fmt.Errorf("%w: invalid num_enroll_stages '%d'", fprint.ErrInvalidArgument, n)
		}
		if d.spec.NumEnrollStages != n {
			d.spec.NumEnrollStages = n
			d.emitProperty(events.PropNumEnrollStages, n)
		}
		return nil
	})
}

// Properties mirrors the D-Bus properties of the device object.
type Properties struct {
	Name            string `json:"name"`
	NumEnrollStages int    `json:"num-enroll-stages"`
	ScanType        string `json:"scan-type"`
	FingerPresent   bool   `json:"finger-present"`
	FingerNeeded    bool   `json:"finger-needed"`
}

// State is a point-in-time view of a device, used by reports and tests.
type State struct {
	ID                ID                  `json:"-"`
	Path              string              `json:"path"`
	Properties        Properties          `json:"properties"`
	HasIdentification bool                `json:"has_identification"`
	ClaimedUser       string              `json:"claimed_user,omitempty"`
	Action            fprint.Action       `json:"action,omitempty"`
	SelectedFinger    string              `json:"selected_finger,omitempty"`
	Enrolled          map[string][]string `json:"enrolled"`
	ScriptPending     int                 `json:"script_pending"`
}

func (d *Device) GetProperties() (Properties, error) {
	var out Properties
	err := d.call(func() error {
		out = d.properties()
		return nil
	})
	return out, err
}

func (d *Device) Snapshot() (State, error) {
	var out State
	err := d.call(func() error {
		out = d.state()
		return nil
	})
	return out, err
}

func (d *Device) properties() Properties {
	return Properties{
		Name:            d.spec.Name,
		NumEnrollStages: d.spec.NumEnrollStages,
		ScanType:        string(d.spec.ScanType),
		FingerPresent:   d.fingerPresent,
		FingerNeeded:    d.fingerNeeded,
	}
}

func (d *Device) state() State {
	return State{
		ID:                d.id,
		Path:              d.path,
		Properties:        d.properties(),
		HasIdentification: d.spec.HasIdentification,
		ClaimedUser:       d.claimedUser,
		Action:            d.action,
		SelectedFinger:    d.selectedFinger,
		Enrolled:          d.enrolled.clone(),
		ScriptPending:     len(d.script),
	}
}
