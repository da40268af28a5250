package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomInactive     = errors.New("room is not bookable")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrDatesUnavailable = errors.New("selected dates are not available")
	ErrInvalidStay      = errors.New("check_out must be after check_in")
	ErrStayTooShort     = errors.New("stay is shorter than the minimum")
	ErrStayTooLong      = errors.New("stay is longer than the maximum")
	ErrOverrideNotFound = errors.New("rate override not found")
)

// StayLengthError carries the limit a stay violated. It unwraps to ErrStayTooShort or ErrStayTooLong.
type StayLengthError struct {
	Err    error
	Nights int
	Limit  int
}

func (e *StayLengthError) Error() string {
	if errors.Is(e.Err, ErrStayTooShort) {
		return fmt.Sprintf("minimum stay is %d nights, got %d", e.Limit, e.Nights)
	}
	return fmt.Sprintf("maximum stay is %d nights, got %d", e.Limit, e.Nights)
}

func (e *StayLengthError) Unwrap() error { return e.Err }

// ValidationError collects input problems per field.
type ValidationError struct {
	fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{fields: make(map[string][]string)}
}

// AsValidationError returns the ValidationError in err's chain, or nil.
func AsValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func (ve *ValidationError) add(field, msg string) {
	ve.fields[field] = append(ve.fields[field], msg)
}

func (ve *ValidationError) empty() bool {
	return len(ve.fields) == 0
}

// orNil returns ve as an error, or nil when nothing was recorded.
func (ve *ValidationError) orNil() error {
	if ve.empty() {
		return nil
	}
	return ve
}

func (ve *ValidationError) Error() string {
	names := make([]string, 0, len(ve.fields))
	for name := range ve.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, strings.Join(ve.fields[name], "; "))
	}
	return strings.Join(parts, "; ")
}

// Fields returns the messages by field name.
func (ve *ValidationError) Fields() map[string][]string {
	return ve.fields
}
