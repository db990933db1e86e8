package auth

import (
	"errors"
	"fmt"
	"net/http"
)

const msgInternal = "An internal server error occurred."

// Error is the outcome of a failed controller operation: the status a
// transport should answer with and a message safe to show the client.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// AsError converts any error returned by the controller to an *Error.
// Errors that are not already an *Error become a generic 500.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return internal(msgInternal)
}

func unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

func badRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

func notFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

func internal(message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message}
}
