package domain

import "fmt"

// NetworkError is a non-2xx response or transport failure. Message
// carries the server-supplied message when one was parseable.
type NetworkError struct {
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StorageError is a persistent-store open or transaction failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError marks a malformed response shape, e.g. a list
// response missing its listStory field.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid response: " + e.Reason
}

// AuthError is a write attempted without a required credential.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

// PermissionError is a platform capability denied by the user.
type PermissionError struct {
	Capability string
}

func (e *PermissionError) Error() string {
	return e.Capability + " permission not granted"
}
