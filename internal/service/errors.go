package service

import "errors"

// Error kinds surfaced by the workflows. Callers match them with errors.Is;
// every returned error wraps exactly one of these or a storage error.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotReversible      = errors.New("entry is not reversible")
	ErrNotDues            = errors.New("entry is not a dues charge")
	ErrReasonRequired     = errors.New("reversal reason is required")
	ErrLocked             = errors.New("match is locked by another operation")
)
