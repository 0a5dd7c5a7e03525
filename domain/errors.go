package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateAccount     = errors.New("email already registered")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidCredential    = errors.New("invalid email or password")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFound             = errors.New("not found")
	ErrMissingRequiredAsset = errors.New("at least one photo is required")
	ErrSessionPersistence   = errors.New("session could not be persisted")
	ErrStorage              = errors.New("file storage failure")
	ErrValidation           = errors.New("validation failed")
)

type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (v *ValidationError) Error() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func (v *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

func (e *SessionError) Is(target error) bool {
	return target == ErrSessionPersistence
}

// PartialError reports a multi-step operation that stopped after some steps
// were already applied. Applied steps are not rolled back.
type PartialError struct {
	Op      string
	Applied []string
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s partially applied (done: %s): %v", e.Op, strings.Join(e.Applied, ", "), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
