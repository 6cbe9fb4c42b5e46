package device

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/fprint"
)

func TestClaimReleaseAlternate(t *testing.T) {
	f := newFixture(t)
	d := f.add(t, pressSpec())

	require.ErrorIs(t, d.Release(), fprint.ErrClaimDevice)
	require.NoError(t, d.Claim("toto"))
	require.ErrorIs(t, d.Claim("toto"), fprint.ErrAlreadyInUse)
	require.ErrorIs(t, d.Claim("other"), fprint.ErrAlreadyInUse)
	require.NoError(t, d.Release())
	require.ErrorIs(t, d.Release(), fprint.ErrClaimDevice)
	require.NoError(t, d.Claim("other"))
}

func TestClaimRejectsEmptyUser(t *testing.T) {
	f := newFixture(t)
	d := f.add(t, pressSpec())
	require.ErrorIs(t, d.Claim(""), fprint.ErrInvalidArgument)
}

func TestConcurrentClaimHasOneWinner(t *testing.T) {
	f := newFixture(t)
	d := f.add(t, pressSpec())

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		busy int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.Claim("toto")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if fprint.ErrorName(err) == "net.reactivated.Fprint.Error.AlreadyInUse" {
				busy++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
	require.Equal(t, n-1, busy)
}

func TestEnrollStartErrors(t *testing.T) {
	f := newFixture(t)
	d := f.add(t, pressSpec())

	require.ErrorIs(t, d.EnrollStart("left-toe"), fprint.ErrInvalidFingername)
	require.ErrorIs(t, d.EnrollStart("right-thumb"), fprint.ErrClaimDevice)

	require.NoError(t, d.Claim("toto"))
	require.ErrorIs(t, d.EnrollStart("any"), fprint.ErrInvalidFingername)
	require.NoError(t, d.EnrollStart("right-thumb"))
	require.ErrorIs(t, d.EnrollStart("right-thumb"), fprint.ErrAlreadyInUse)
	require.ErrorIs(t, d.VerifyStop(), fprint.ErrNoActionInProgress)
	require.NoError(t, d.EnrollStop())
	require.ErrorIs(t, d.EnrollStop(), fprint.ErrNoActionInProgress)
}

func TestVerifyStartErrors(t *testing.T) {
	f := newFixture(t)
	d := f.add(t, pressSpec())

	require.ErrorIs(t, d.VerifyStart("any"), fprint.ErrClaimDevice)

	require.NoError(t, d.Claim("toto"))
	require.ErrorIs(t, d.VerifyStart("any"), fprint.ErrNoEnrolledPrints)

	require.NoError(t, d.SetEnrolledFingers("toto", nil))
	require.ErrorIs(t, d.VerifyStart("any"), fprint.ErrNoEnrolledPrints)

	require.NoError(t, d.SetEnrolledFingers("toto", []string{"left-thumb"}))
	require.ErrorIs(t, d.VerifyStart(""), fprint.ErrInvalidArgument)

	err := d.VerifyStart("right-thumb")
	require.ErrorIs(t, err, fprint.ErrFingerNotEnrolled)
	require.Equal(t, "org.freedesktop.DBus.Error.Internal", fprint.ErrorName(err))

	require.NoError(t, d.VerifyStart("left-thumb"))
	require.ErrorIs(t, d.VerifyStart("left-thumb"), fprint.ErrAlreadyInUse)
	require.ErrorIs(t, d.EnrollStart("left-thumb"), fprint.ErrAlreadyInUse)
	require.ErrorIs(t, d.EnrollStop(), fprint.ErrNoActionInProgress)
	require.NoError(t, d.VerifyStop())
	require.ErrorIs(t, d.VerifyStop(), fprint.ErrNoActionInProgress)
}

func TestVerifyAnyPicksFirstFingerWithoutIdentification(t *testing.T) {
	f := newFixture(t)
	d := f.claimedWithPrints(t, pressSpec(), "toto", "right-middle-finger", "left-thumb")

	require.NoError(t, d.VerifyStart("any"))
	sel, err := d.GetSelectedFinger()
	require.NoError(t, err)
	require.Equal(t, "right-middle-finger", sel)

	got := f.sink.waitFor(t, events.FingerSelected, 1)
	require.Equal(t, "right-middle-finger", got[0].Finger)
	require.Equal(t, d.Path(), got[0].Device)
}

func TestVerifyAnyKeptWithIdentification(t *testing.T) {
	f := newFixture(t)
	spec := pressSpec()
	spec.HasIdentification = true
	d := f.claimedWithPrints(t, spec, "toto", "left-thumb", "right-thumb")

	require.NoError(t, d.VerifyStart("any"))
	got := f.sink.waitFor(t, events.FingerSelected, 1)
	require.Equal(t, "any", got[0].Finger)
}

func TestFingerSelectedOnlyAfterReturn(t *testing.T) {
	f := newFixture(t)
	d := f.claimedWithPrints(t, pressSpec(), "toto", "left-thumb")

	returned := make(chan struct{})
	sawReturn := make(chan bool, 1)
	f.sink.hook = func(ev events.Event) {
		if ev.Signal != events.FingerSelected {
			return
		}
		select {
		case <-returned:
			sawReturn <- true
		case <-time.After(time.Second):
			sawReturn <- false
		}
	}

	require.NoError(t, d.VerifyStart("left-thumb"))
	close(returned)

	select {
	case ok := <-sawReturn:
		require.True(t, ok, "FingerSelected was emitted before VerifyStart returned")
	case <-time.After(2 * time.Second):
		t.Fatal("FingerSelected never emitted")
	}
}

func TestStartAnnouncesFingerNeeded(t *testing.T) {
	f := newFixture(t)
	d := f.claimedWithPrints(t, pressSpec(), "toto", "left-thumb")

	require.NoError(t, d.VerifyStart("left-thumb"))
	f.sink.waitFor(t, events.PropertyChanged, 1)
	props, err := d.GetProperties()
	require.NoError(t, err)
	require.True(t, props.FingerNeeded)

	require.NoError(t, d.VerifyStop())
	changes := f.sink.of(events.PropertyChanged)
	require.Len(t, changes, 2)
	require.Equal(t, events.PropFingerNeeded, changes[0].Property)
	require.Equal(t, true, changes[0].Value)
	require.Equal(t, false, changes[1].Value)
}

func TestListAndDeleteEnrolledFingers(t *testing.T) {
	f := newFixture(t)
	d := f.add(t, pressSpec())

	_, err := d.ListEnrolledFingers("toto")
	require.ErrorIs(t, err, fprint.ErrNoEnrolledPrints)

	require.NoError(t, d.DeleteEnrolledFingers("toto"))
	fingers, err := d.ListEnrolledFingers("toto")
	require.NoError(t, err)
	require.Empty(t, fingers)

	require.NoError(t, d.SetEnrolledFingers("toto", []string{"left-thumb", "left-thumb", "right-thumb"}))
	fingers, err = d.ListEnrolledFingers("toto")
	require.NoError(t, err)
	require.Equal(t, []string{"left-thumb", "right-thumb"}, fingers)

	require.ErrorIs(t, d.DeleteEnrolledFingers2(), fprint.ErrClaimDevice)
	require.NoError(t, d.Claim("toto"))
	require.NoError(t, d.DeleteEnrolledFingers2())
	require.ErrorIs(t, d.DeleteEnrolledFingers2(), fprint.ErrNoEnrolledPrints)
}

func TestSetEnrolledFingersRejectsUnknownNames(t *testing.T) {
	f := newFixture(t)
	d := f.add(t, pressSpec())
	require.ErrorIs(t, d.SetEnrolledFingers("toto", []string{"left-thumb", "nose"}), fprint.ErrInvalidArgument)
	_, err := d.ListEnrolledFingers("toto")
	require.ErrorIs(t, err, fprint.ErrNoEnrolledPrints)
}

func TestReleaseEndsAction(t *testing.T) {
	f := newFixture(t)
	d := f.claimedWithPrints(t, pressSpec(), "toto", "left-thumb")

	require.NoError(t, d.VerifyStart("left-thumb"))
	require.NoError(t, d.Release())

	st, err := d.Snapshot()
	require.NoError(t, err)
	require.Equal(t, fprint.ActionNone, st.Action)
	require.Empty(t, st.ClaimedUser)
	require.Empty(t, st.SelectedFinger)

	require.NoError(t, d.Claim("toto"))
	require.NoError(t, d.VerifyStart("left-thumb"))
}

func TestReleaseDiscardsScript(t *testing.T) {
	f := newFixture(t)
	d := f.claimedWithPrints(t, pressSpec(), "toto", "left-thumb")

	require.NoError(t, d.SetVerifyScript([]ScriptEntry{{Result: fprint.VerifyMatch, Done: true}}))
	require.NoError(t, d.Release())

	st, err := d.Snapshot()
	require.NoError(t, err)
	require.Zero(t, st.ScriptPending)
}

func TestVerifyWithoutPrintsNeverSelects(t *testing.T) {
	f := newFixture(t)
	d := f.claimedWithPrints(t, pressSpec(), "u1")

	require.ErrorIs(t, d.VerifyStart("right-thumb"), fprint.ErrNoEnrolledPrints)
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, f.sink.of(events.FingerSelected))
}

func TestEnrollCompletedThenStop(t *testing.T) {
	f := newFixture(t)
	d := f.claimedWithPrints(t, pressSpec(), "u1")

	require.NoError(t, d.SetVerifyScript([]ScriptEntry{{Result: fprint.EnrollCompleted, Done: true}}))
	require.NoError(t, d.EnrollStart("left-thumb"))
	got := f.sink.waitFor(t, events.EnrollStatus, 1)
	require.Equal(t, fprint.EnrollCompleted, got[0].Result)
	require.True(t, got[0].Done)

	require.NoError(t, d.EnrollStop())
	require.ErrorIs(t, d.EnrollStop(), fprint.ErrNoActionInProgress)
	time.Sleep(10 * time.Millisecond)
	require.Len(t, f.sink.of(events.EnrollStatus), 1)
}
