// Package fprint holds the protocol vocabulary shared by the device model and the
// boundary: finger names, status codes, script directives and error kinds.
package fprint

import "errors"

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAlreadyInUse       = errors.New("already in use")
	ErrClaimDevice        = errors.New("device was not claimed before use")
	ErrNoEnrolledPrints   = errors.New("no enrolled prints")
	ErrInvalidFingername  = errors.New("invalid finger name")
	ErrNoActionInProgress = errors.New("no action in progress")
	ErrNoSuchDevice       = errors.New("no such device")
	ErrFingerNotEnrolled  = errors.New("finger not enrolled")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnknownMethod      = errors.New("unknown method")
)

const (
	errorPrefix     = "net.reactivated.Fprint.Error."
	dbusErrorPrefix = "org.freedesktop.DBus.Error."
)

// The finger-not-enrolled case is reported as an internal error, matching what
// clients of the real daemon already handle.
var errorNames = []struct {
	err  error
	name string
}{
	{ErrInvalidArgument, dbusErrorPrefix + "InvalidArgs"},
	{ErrAlreadyInUse, errorPrefix + "AlreadyInUse"},
	{ErrClaimDevice, errorPrefix + "ClaimDevice"},
	{ErrNoEnrolledPrints, errorPrefix + "NoEnrolledPrints"},
	{ErrInvalidFingername, errorPrefix + "InvalidFingername"},
	{ErrNoActionInProgress, errorPrefix + "NoActionInProgress"},
	{ErrNoSuchDevice, errorPrefix + "NoSuchDevice"},
	{ErrFingerNotEnrolled, dbusErrorPrefix + "Internal"},
	{ErrPermissionDenied, errorPrefix + "PermissionDenied"},
	{ErrUnknownMethod, dbusErrorPrefix + "UnknownMethod"},
}

// ErrorName returns the wire name for err, or the generic internal error name
// when err does not wrap any known kind.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}
	return errorPrefix + "Internal"
}

// ErrorFromName is the inverse of ErrorName. It is used by clients decoding a
// boundary reply; unknown names yield nil.
func ErrorFromName(name string) error {
	for _, e := range errorNames {
		if e.name == name {
			return e.err
		}
	}
	return nil
}
