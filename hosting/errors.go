package hosting

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers. CodeRemote covers
// every repository-side failure regardless of backend.
const (
	CodeRemote     = "github_error"
	CodeAuthFailed = "auth_failed"
	CodeAuthConfig = "auth_config_error"
)

// ErrNotFound reports that a requested file does not
// exist at the requested ref.
var ErrNotFound = errors.New("file not found")

// CallError is the uniform failure for any remote
// repository call. It carries the upstream status and
// response body for operator diagnosis.
type CallError struct {
	// Op names the failed operation.
	Op string
	// Status is the upstream HTTP status, 0 when the
	// call never produced a response.
	Status int
	// Body is the upstream response body, parsed or
	// raw.
	Body string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Body)
	}

	return fmt.Sprintf(
		"%s: upstream status %d: %s",
		e.Op, e.Status, e.Body,
	)
}

// ErrorCode returns the taxonomy code for response
// mapping.
func (e *CallError) ErrorCode() string {
	return CodeRemote
}

// AuthError is a credential-minting failure. Config
// errors never touch the network; exchange errors carry
// the upstream status and body.
type AuthError struct {
	// Code is CodeAuthFailed or CodeAuthConfig.
	Code string
	// Message describes the failure.
	Message string
	// Status is the upstream HTTP status of a failed
	// exchange, 0 for local failures.
	Status int
	// Body is the upstream response body, empty for
	// local failures.
	Body string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s: upstream status %d: %s",
		e.Code, e.Message, e.Status, e.Body,
	)
}

// ErrorCode returns the taxonomy code for response
// mapping.
func (e *AuthError) ErrorCode() string {
	return e.Code
}
