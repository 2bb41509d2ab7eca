package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError marks synchronous input rejection. Handlers map it to
// a 400 with the message; nothing has been written when it is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
