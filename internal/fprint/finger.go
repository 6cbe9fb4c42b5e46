package fprint

// AnyFinger is the wildcard accepted by VerifyStart. It is never stored.
const AnyFinger = "any"

var fingerNames = []string{
	"left-thumb",
	"left-index-finger",
	"left-middle-finger",
	"left-ring-finger",
	"left-little-finger",
	"right-thumb",
	"right-index-finger",
	"right-middle-finger",
	"right-ring-finger",
	"right-little-finger",
}

// FingerNames returns the ten canonical finger names in protocol order.
func FingerNames() []string {
	out := make([]string, len(fingerNames))
	copy(out, fingerNames)
	return out
}

// ValidFinger reports whether name is one of the canonical finger names.
// The wildcard is not a valid finger.
func ValidFinger(name string) bool {
	for _, f := range fingerNames {
		if f == name {
			return true
		}
	}
	return false
}

type ScanType string

const (
	ScanPress ScanType = "press"
	ScanSwipe ScanType = "swipe"
)

func (s ScanType) Valid() bool {
	return s == ScanPress || s == ScanSwipe
}
