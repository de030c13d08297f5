package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or malformed user input. It aborts the
// current interaction only and is shown to the user as a warning.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ExternalServiceError wraps any failure of the completion service.
type ExternalServiceError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: completion service timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: completion service failed: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsExternalService reports whether err is (or wraps) an ExternalServiceError.
func IsExternalService(err error) bool {
	var e *ExternalServiceError
	return errors.As(err, &e)
}

// Error kinds reported to the page.
const (
	KindValidation      = "validation"
	KindExternalService = "external_service"
	KindInternal        = "internal"
)

// Classify returns the error kind and the message that may be shown to the
// user. Internal errors get a generic message.
func Classify(err error) (kind, message string) {
	var v *ValidationError
	if errors.As(err, &v) {
		return KindValidation, v.Message
	}
	var e *ExternalServiceError
	if errors.As(err, &e) {
		if e.Timeout {
			return KindExternalService, "The AI service took too long to respond. Please try again."
		}
		return KindExternalService, "The AI service request failed: " + e.Err.Error()
	}
	return KindInternal, "Something went wrong. Please try again."
}
