// Package apperrors defines the error taxonomy shared by the service and
// controller layers. Controllers map these to HTTP statuses via HTTPStatus;
// everything else is treated as an internal error.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ValidationError carries every failing field of a request, not just the
// first one encountered. Fields maps a field path (e.g. "order_items.1.id")
// to one or more messages.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// NotFoundError signals a referenced resource that does not exist.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// AuthorizationError signals that the acting role lacks permission for the
// requested scope. Always surfaced as 403, never as a soft failure.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}

// PersistenceError wraps a transactional write failure. By the time it is
// returned the transaction has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// StateError signals an illegal order-item status transition.
type StateError struct {
	From string
	To   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// HTTPStatus maps an error to its response status code.
func HTTPStatus(err error) int {
	var (
		validationErr    *ValidationError
		notFoundErr      *NotFoundError
		authorizationErr *AuthorizationError
		stateErr         *StateError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &authorizationErr):
		return http.StatusForbidden
	case errors.As(err, &stateErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
