package registry

import (
	"errors"
	"fmt"

	"github.com/talgya/lineage/internal/agents"
)

// Error is returned by registry mutations that would break an invariant.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the failed operation ("marry", "add_child", ...).
	Op string

	// Person is the person the check failed on, if any.
	Person agents.PersonID

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes registry errors.
type ErrorCode string

const (
	// ErrCodeInvalidState: a dead or already married person in a marriage.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeInvalidArgument: same-sex pairing, unknown or duplicate person.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeCapacity: the children cap would be exceeded.
	ErrCodeCapacity ErrorCode = "CAPACITY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Person != agents.None {
		return fmt.Sprintf("%s: %s: %s (person=%d)", e.Code, e.Op, e.Message, e.Person)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

// IsInvalidState reports whether err is an INVALID_STATE registry error.
func IsInvalidState(err error) bool {
	return hasCode(err, ErrCodeInvalidState)
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT registry error.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsCapacity reports whether err is a CAPACITY registry error.
func IsCapacity(err error) bool {
	return hasCode(err, ErrCodeCapacity)
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func invalidState(op string, id agents.PersonID, msg string) *Error {
	return &Error{Code: ErrCodeInvalidState, Op: op, Person: id, Message: msg}
}

func invalidArgument(op string, id agents.PersonID, msg string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Op: op, Person: id, Message: msg}
}

func capacity(op string, id agents.PersonID, limit int) *Error {
	return &Error{
		Code:    ErrCodeCapacity,
		Op:      op,
		Person:  id,
		Message: fmt.Sprintf("maximum of %d children per parent reached", limit),
	}
}
