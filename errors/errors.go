package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// Error is the API error surfaced to handlers and responses.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

var (
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrInvalidPassword     = New("invalid email or password", http.StatusUnprocessableEntity)
)

func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// GetUniqueContraintError maps a postgres unique violation to a friendly error.
func GetUniqueContraintError(err error) *Error {
	if strings.Contains(err.Error(), "email") {
		return New("user with this email already exists", http.StatusConflict)
	}
	return New("duplicate record", http.StatusConflict)
}
