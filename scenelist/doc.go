// Package scenelist defines the submitted scene-list
// document and validates inbound submissions.
//
// Validation is pure: it inspects the raw request body
// and either produces a normalized Submission or a
// classified Rejection. No network or filesystem access
// happens here, so a rejected submission never causes a
// remote side effect.
package scenelist
