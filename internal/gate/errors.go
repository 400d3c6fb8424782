package gate

import "errors"

var (
	// ErrInvalidFormat means the submitted PIN is not 4-8 digits. Rejected
	// before any stateful check; no attempt is recorded.
	ErrInvalidFormat = errors.New("invalid pin format")

	// ErrNotFound covers unknown and inactive pages alike, so probing cannot
	// distinguish "wrong profile" from "page disabled".
	ErrNotFound = errors.New("page not found")

	// ErrLocked means the page refuses all attempts until the lock expires
	ErrLocked = errors.New("page locked")

	// ErrRememberNotAllowed means the page owner disabled device trust
	ErrRememberNotAllowed = errors.New("remember not allowed")

	// ErrDenied is the single external shape for every download token failure
	// (unknown, expired, consumed, wrong scope, wrong purpose).
	ErrDenied = errors.New("denied")

	// ErrUnlockProofInvalid means the presented unlock proof did not verify
	ErrUnlockProofInvalid = errors.New("invalid unlock proof")

	// ErrInvalidVisibility means the requested visibility mode is not one of
	// hidden or visible.
	ErrInvalidVisibility = errors.New("invalid visibility mode")
)
