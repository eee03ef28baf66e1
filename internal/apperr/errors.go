package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a row does not exist or belongs to another owner.
var ErrNotFound = errors.New("not found")

// StoreError wraps any failed read or write against the data store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store builds a StoreError, passing nil and ErrNotFound through untouched.
func Store(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

type AuthErrorType string

const (
	AuthLoginFailed  AuthErrorType = "login_failed"
	AuthSignupFailed AuthErrorType = "signup_failed"
)

// AuthError is rendered inline to the user and keyed by Type.
type AuthError struct {
	Type    AuthErrorType `json:"type"`
	Message string        `json:"message"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func LoginFailed(message string) *AuthError {
	if message == "" {
		message = "Invalid email or password"
	}
	return &AuthError{Type: AuthLoginFailed, Message: message}
}

func SignupFailed(message string) *AuthError {
	return &AuthError{Type: AuthSignupFailed, Message: message}
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
