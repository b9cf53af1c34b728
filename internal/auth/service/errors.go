package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid_input")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrMFARequired        = errors.New("mfa_required")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidMFACode     = errors.New("invalid_mfa_code")
	ErrMFAAlreadyEnabled  = errors.New("mfa_already_enabled")
	ErrMFANotEnabled      = errors.New("mfa_not_enabled")
	ErrMFANotEnrolled     = errors.New("mfa_not_enrolled")
)

// InputError carries the field-level reason behind ErrInvalidInput.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalidInput(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}
