package auth

import "errors"

// Failure kinds returned by the guard. Unknown-username and wrong-password
// failures are both reported as ErrInvalidCredential so callers cannot
// enumerate usernames.
var (
	ErrEmptyCredential   = errors.New("username and password cannot be empty")
	ErrWeakPassword      = errors.New("password must be at least 8 characters long")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrAccountLocked     = errors.New("account temporarily locked after repeated failed attempts")
	ErrInvalidCredential = errors.New("incorrect username or password")
)
