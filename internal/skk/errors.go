package skk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for a key that has no meaning in the
	// current submode. The message has already been shown to the user and
	// the state is unchanged.
	ErrInvalidInput = errors.New("skk: invalid input")

	// ErrMarkerDesync is returned when the headword sentinel is missing from
	// the text at the recorded marker. The session has been reset to Kakutei.
	ErrMarkerDesync = errors.New("skk: headword marker out of sync")

	// ErrNoRegistration is returned when resuming or cancelling while no
	// registration is pending.
	ErrNoRegistration = errors.New("skk: no registration pending")
)

// RegistrationFormatError reports a registration buffer that does not follow
// RegistrationTemplate.
type RegistrationFormatError struct {
	Reason string
}

func (e *RegistrationFormatError) Error() string {
	return fmt.Sprintf("skk: malformed registration: %s", e.Reason)
}
