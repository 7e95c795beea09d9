package domain

import "errors"

var (
	// ErrValidation wraps input errors caught before any store call.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a profile, athlete or activity cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrNothingToUndo is returned when the session has no entry to revert.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNotBeltReady is returned when promoting an athlete below the threshold or at black belt.
	ErrNotBeltReady = errors.New("athlete is not ready for promotion")
	// ErrBeltChanged is returned when a promotion finds the belt already moved by another write.
	ErrBeltChanged = errors.New("belt changed since it was read")
	// ErrSessionClosed is returned for sessions that were logged out or never existed.
	ErrSessionClosed = errors.New("session closed")
)
