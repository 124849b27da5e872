package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrNotFound indicates that the requested assignment or courier does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates that an optimistic state check failed: the record
// changed between the caller's read and its conditional write. Callers must
// re-read and decide whether to retry or abandon.
var ErrConflict = errors.New("concurrent modification conflict")

// ErrInvalidTransition is returned for a status transition the state machine
// does not permit. Rejected before any write is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrExpired is returned when a courier accepts after the response deadline,
// even if the timeout sweep has not processed the record yet.
var ErrExpired = errors.New("assignment expired")

// ErrNoCandidate signals that candidate selection produced an empty list.
// The assignment stays pending and is surfaced for retry and alerting.
var ErrNoCandidate = errors.New("no candidate available")

// ErrCourierBusy indicates the courier's concurrency limit was reached when
// the write re-checked the load, even though selection saw a free slot.
var ErrCourierBusy = errors.New("courier capacity exceeded")
