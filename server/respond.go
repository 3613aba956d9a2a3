package server

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/sceneindex/submitd/hosting"
	"github.com/sceneindex/submitd/scenelist"
)

// CodeUnauthorized rejects requests failing the shared
// secret check, and CodeNotFound everything outside the
// service's routes.
const (
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
)

// Response is the uniform JSON envelope for every
// submission outcome.
type Response struct {
	OK    bool       `json:"ok"`
	PRURL string     `json:"pr_url,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries the failure classification and the
// underlying message for operator diagnosis.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// coder is implemented by every classified failure in
// the system.
type coder interface {
	ErrorCode() string
}

// writeJSON serializes v with the shared JSON codec.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set(
		"Content-Type", "application/json",
	)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// writeFailure writes the envelope for a classified
// failure.
func writeFailure(
	w http.ResponseWriter,
	code string,
	message string,
	details string,
) {
	writeJSON(w, statusFor(code), Response{
		OK: false,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeError classifies err and writes its envelope.
// Unclassified errors count as remote failures.
func writeError(w http.ResponseWriter, err error) {
	code := hosting.CodeRemote

	var c coder
	if errors.As(err, &c) {
		code = c.ErrorCode()
	}

	writeFailure(
		w, code, messageFor(code), err.Error(),
	)
}

// statusFor maps an error code to its HTTP status:
// validation failures are 400, the secret check 401,
// oversize payloads 413, everything downstream 500.
func statusFor(code string) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case scenelist.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case scenelist.CodeBadJSON,
		scenelist.CodeBadRequest,
		scenelist.CodeBadSchema,
		scenelist.CodeBadIMDBID,
		scenelist.CodeNoScenes,
		scenelist.CodeTooManyScenes,
		scenelist.CodeBadScenePath:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageFor gives each code a stable human-readable
// summary; the underlying error goes into details.
func messageFor(code string) string {
	switch code {
	case hosting.CodeAuthFailed:
		return "credential minting failed"
	case hosting.CodeAuthConfig:
		return "credential configuration is invalid"
	case hosting.CodeRemote:
		return "content repository call failed"
	default:
		return "submission rejected"
	}
}
