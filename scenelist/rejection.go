package scenelist

import "fmt"

// Rejection codes. Each maps to one validation rule;
// the first failing rule wins.
const (
	CodeBadJSON         = "bad_json"
	CodeBadRequest      = "bad_request"
	CodeBadSchema       = "bad_schema"
	CodeBadIMDBID       = "bad_imdb_id"
	CodeNoScenes        = "no_scenes"
	CodeTooManyScenes   = "too_many_scenes"
	CodeBadScenePath    = "bad_scene_path"
	CodePayloadTooLarge = "payload_too_large"
)

// Rejection is a classified validation failure. It is
// produced before any remote call is attempted.
type Rejection struct {
	// Code is one of the Code* constants.
	Code string
	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// ErrorCode returns the rejection code for response
// mapping.
func (r *Rejection) ErrorCode() string {
	return r.Code
}

func reject(code string, msg string) *Rejection {
	return &Rejection{Code: code, Message: msg}
}
