package identity

import "errors"

var (
	ErrNotFound           = errors.New("identity: user not found")
	ErrInvalidCredential  = errors.New("identity: invalid credential")
	ErrAlreadyExists      = errors.New("identity: username already registered")
	ErrGoogleIdentity     = errors.New("identity: google account has neither email nor subject")
	ErrInvalidGoogleToken = errors.New("identity: google credential rejected")
	ErrGoogleUnavailable  = errors.New("identity: google sign-in not configured")
	ErrNoSession          = errors.New("identity: no active session")
)

// ValidationError carries the user-facing message of the first failed rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
