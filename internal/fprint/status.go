package fprint

// Script directives. They share the result column of a script entry with the
// status codes but are never emitted as signals.
const (
	// DirectiveNoPrints makes the start call fail with ErrNoEnrolledPrints.
	DirectiveNoPrints = "MOCK: no-prints"
	// DirectiveQuit ends the simulated process when its emission point is reached.
	DirectiveQuit = "MOCK: quit"
)

const (
	VerifyNoMatch         = "verify-no-match"
	VerifyMatch           = "verify-match"
	VerifyRetryScan       = "verify-retry-scan"
	VerifySwipeTooShort   = "verify-swipe-too-short"
	VerifyFingerNotCenter = "verify-finger-not-centered"
	VerifyRemoveAndRetry  = "verify-remove-and-retry"
	VerifyDisconnected    = "verify-disconnected"
	VerifyUnknownError    = "verify-unknown-error"
)

const (
	EnrollCompleted       = "enroll-completed"
	EnrollFailed          = "enroll-failed"
	EnrollStagePassed     = "enroll-stage-passed"
	EnrollRetryScan       = "enroll-retry-scan"
	EnrollSwipeTooShort   = "enroll-swipe-too-short"
	EnrollFingerNotCenter = "enroll-finger-not-centered"
	EnrollRemoveAndRetry  = "enroll-remove-and-retry"
	EnrollDataFull        = "enroll-data-full"
	EnrollDisconnected    = "enroll-disconnected"
	EnrollUnknownError    = "enroll-unknown-error"
)

var verifyStatuses = map[string]bool{
	VerifyNoMatch:         true,
	VerifyMatch:           true,
	VerifyRetryScan:       true,
	VerifySwipeTooShort:   true,
	VerifyFingerNotCenter: true,
	VerifyRemoveAndRetry:  true,
	VerifyDisconnected:    true,
	VerifyUnknownError:    true,
}

var enrollStatuses = map[string]bool{
	EnrollCompleted:       true,
	EnrollFailed:          true,
	EnrollStagePassed:     true,
	EnrollRetryScan:       true,
	EnrollSwipeTooShort:   true,
	EnrollFingerNotCenter: true,
	EnrollRemoveAndRetry:  true,
	EnrollDataFull:        true,
	EnrollDisconnected:    true,
	EnrollUnknownError:    true,
}

func ValidVerifyStatus(result string) bool { return verifyStatuses[result] }

func ValidEnrollStatus(result string) bool { return enrollStatuses[result] }

// Action is what a claimed device is currently doing.
type Action string

const (
	ActionNone   Action = ""
	ActionEnroll Action = "enroll"
	ActionVerify Action = "verify"
)
