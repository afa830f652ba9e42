package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the persistence layer and the HTTP handlers.
var (
	ErrNotFound        = errors.New("not found")
	ErrVersion         = errors.New("E_VERSION")
	ErrReferenced      = errors.New("referenced by existing requests")
	ErrNoDefaultStatus = errors.New("no default status")
	ErrCancelled       = errors.New("cancelled")
)

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// ValidationError rejects user input before anything is written.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Type is the error type reported in the JSON error envelope.
func (e *ValidationError) Type() string {
	return "data.validation." + e.Field
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ReferencedError reports how many requests still point at a category or status type.
type ReferencedError struct {
	Entity string
	Count  int64
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("%s is referenced by %d request(s)", e.Entity, e.Count)
}

func (e *ReferencedError) Unwrap() error {
	return ErrReferenced
}
