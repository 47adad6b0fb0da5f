// Package service holds the business rules between the HTTP handlers and the
// repositories: session tokens, accounts, owner-scoped entries and todos.
package service

import (
	"errors"
	"fmt"

	"github.com/andymattgee/swe-blog/internal/repository"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrRevokedToken       = errors.New("token is no longer valid")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUpstream           = errors.New("upstream service failed")
	ErrStorage            = errors.New("storage failure")
)

// ValidationError names the offending field. It matches ErrValidation with
// errors.Is.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// storeErr translates repository errors at the service boundary. Anything
// that is not a known sentinel is a storage failure.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
}
