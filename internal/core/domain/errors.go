package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBlock is matched by every block validation failure.
var ErrInvalidBlock = errors.New("invalid block")

var ErrRenderDepthExceeded = errors.New("render depth exceeded")

// InvalidDataError reports a payload that is not a decodable JSON object.
type InvalidDataError struct {
	Reason string
	Err    error
}

func (e *InvalidDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid data: %s: %v", e.Reason, e.Err)
	}
	return "invalid data: " + e.Reason
}

func (e *InvalidDataError) Unwrap() error { return e.Err }

func (e *InvalidDataError) Is(target error) bool { return target == ErrInvalidBlock }

// MissingKeysError lists the required keys absent from a payload next to the
// keys the payload did provide.
type MissingKeysError struct {
	Required []string
	Provided []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("some keys are missing: keys required are: %s; provided keys are: %s",
		strings.Join(e.Required, ", "), strings.Join(e.Provided, ", "))
}

func (e *MissingKeysError) Is(target error) bool { return target == ErrInvalidBlock }

type TypeMismatchError struct {
	Key      string
	Expected FieldType
	Actual   FieldType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("wrong type for key %q: should be %s instead of %s", e.Key, e.Expected, e.Actual)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrInvalidBlock }

// ErrDefinitionViolation is returned when a template definition is malformed.
// The Errors field contains machine-readable details.
type ErrDefinitionViolation struct {
	Errors []string
}

func (e *ErrDefinitionViolation) Error() string {
	return fmt.Sprintf("template definition invalid: %s", strings.Join(e.Errors, "; "))
}
