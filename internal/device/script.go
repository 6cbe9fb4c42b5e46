package device

import (
	"fmt"
	"time"

	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/fprint"
	"github.com/deepin-community/fprintd/internal/logger"
)

// ScriptEntry is one programmed outcome. A negative delay emits the status
// before the start call returns and then holds the call for that many
// milliseconds; otherwise the status is emitted after the accumulated delay.
type ScriptEntry struct {
	Result      string `json:"result" yaml:"result"`
	Done        bool   `json:"done" yaml:"done"`
	DelayMillis int    `json:"delay_ms" yaml:"delay_ms"`
}

// runScript drains the script for the session that was just opened, from
// inside the start call. Entries after the first scheduled done entry stay
// queued for the next start.
func (d *Device) runScript(session string, signal events.Signal) error {
	base := 0
	for len(d.script) > 0 {
		// A negative-delay wait lets other calls in; one of them may have ended
		// the session or removed the device.
		if d.session != session || d.removed {
			return nil
		}

		entry := d.script[0]
		d.script = d.script[1:]

		switch {
		case entry.Result == fprint.DirectiveNoPrints:
			return fmt.Errorf("%w: No enrolled prints for user '%s'", fprint.ErrNoEnrolledPrints, d.claimedUser)

		case entry.DelayMillis < 0:
			d.fire(signal, entry)
			d.reg.loop.Sleep(time.Duration(-entry.DelayMillis) * time.Millisecond)

		default:
			base += entry.DelayMillis
			e := entry
			d.reg.loop.After(session, time.Duration(base)*time.Millisecond, func() {
				d.fire(signal, e)
			})
			if entry.Done {
				return nil
			}
		}
	}
	return nil
}

func (d *Device) fire(signal events.Signal, e ScriptEntry) {
	if e.Result == fprint.DirectiveQuit {
		logger.Warn("device %s: script requested the daemon to quit", d.path)
		d.reg.exit()
		return
	}
	d.emitStatus(signal, e.Result, e.Done)
}

func (d *Device) emitStatus(signal events.Signal, result string, done bool) {
	d.emit(events.Event{Signal: signal, Result: result, Done: done})
	if signal == events.EnrollStatus && result == fprint.EnrollCompleted &&
		d.action == fprint.ActionEnroll && d.enrollFinger != "" {
		if d.enrolled.add(d.claimedUser, d.enrollFinger) {
			logger.Info("device %s: enrolled %s for %s", d.path, d.enrollFinger, d.claimedUser)
			d.persist()
		}
	}
}
