// Package storage defines the Storage interface, the contract any record
// backend (SQLite, MongoDB, a test fake) must satisfy to work with the
// registration handlers.
//
// Backends never return raw driver errors for the cases the HTTP layer
// cares about. They translate them into the error variants below so the
// handler can match them exhaustively with errors.As:
//
//	*DuplicateKeyError  — a unique field already holds this value
//	*ValidationError    — the record broke one or more field rules
//	*TypeMismatchError  — a field could not be cast to its stored type
//
// Anything else is an unexpected failure.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aanand-mishra/registration-api/internal/types"
)

// Names of the fields that carry a uniqueness constraint. They match the
// JSON/BSON field names so error messages and index names line up.
const (
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldAadharNumber = "aadharNumber"
)

// Storage is the Record Store contract.
type Storage interface {
	// CreateRegistration builds a record from the raw input, validates it,
	// and inserts it atomically. Uniqueness is enforced by the backend on
	// insert, never checked beforehand.
	CreateRegistration(ctx context.Context, in types.RegistrationInput) (types.Registration, error)

	// GetRegistrations returns every record, newest first.
	// Returns an empty slice (not nil) when there are none.
	GetRegistrations(ctx context.Context) ([]types.Registration, error)
}

// DuplicateKeyError reports an insert rejected by a unique constraint.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for unique field %s", e.Field)
}

// ValidationError carries one human-readable message per failing field.
type ValidationError struct {
	FieldErrors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.FieldErrors, ", ")
}

// TypeMismatchError reports a value that could not be cast to the type the
// field is stored as.
type TypeMismatchError struct {
	Field string
	Err   error
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cast to %s failed: %v", e.Field, e.Err)
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }
