package domain

import "errors"

// Sentinel errors shared across services and repositories. Services return
// these for expected outcomes; transport maps them to stable response codes.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a request-level validation failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the caller is not allowed to act on the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyConfirmed is returned when confirming an invitee that is
	// already confirmed, including when a concurrent confirmation won the race.
	ErrAlreadyConfirmed = errors.New("invitee already confirmed")

	// ErrAlreadyCheckedIn is returned when checking in an invitee that is
	// already checked in, including when a concurrent check-in won the race.
	ErrAlreadyCheckedIn = errors.New("invitee already checked in")

	// ErrNotConfirmed is returned when a check-in is attempted before the
	// invitee has confirmed attendance.
	ErrNotConfirmed = errors.New("invitee not confirmed")

	// ErrConflict is returned by repositories when a guarded update matched
	// zero rows. Services must not surface it raw: they re-read the row and
	// translate it to ErrAlreadyConfirmed or ErrAlreadyCheckedIn.
	ErrConflict = errors.New("conditional update lost")

	// ErrDuplicatePhone indicates the (event, phone) pair already exists.
	ErrDuplicatePhone = errors.New("phone already invited to this event")

	// ErrDuplicateQRToken indicates a qr_token unique violation. Callers
	// regenerate the token once; a second violation is surfaced as-is.
	ErrDuplicateQRToken = errors.New("qr token already exists")

	// ErrUserNotFound indicates the organizer account does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail indicates the organizer email is already registered.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrInvalidCredentials indicates a failed organizer login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
