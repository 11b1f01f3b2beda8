package models

import (
	"errors"
	"fmt"
)

// Error kinds shared by the server and the board client. Callers match them
// with errors.Is.
var (
	// ErrValidation marks a malformed or incomplete request.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidStatus marks a status outside the closed set.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrValidation)
	// ErrNotFound marks a missing record, or one owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an attempt to act on another user's data.
	ErrForbidden = errors.New("forbidden")
	// ErrUserExists is returned when registering a taken email or username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTransient marks a failure to reach the server at all.
	ErrTransient = errors.New("server unreachable")
)
