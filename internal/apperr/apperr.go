package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP edge can map it to a status
// code without inspecting message text.
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindInvalidName     Kind = "invalid_name"
	KindPathTooLong     Kind = "path_too_long"
	KindDuplicate       Kind = "duplicate"
	KindDepthExceeded   Kind = "depth_exceeded"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindNotEmpty        Kind = "not_empty"
	KindInvalidDest     Kind = "invalid_destination"
	KindParentGone      Kind = "parent_gone"
	KindQuotaExceeded   Kind = "quota_exceeded"

	KindInvalidOrAlreadyConfirmed Kind = "invalid_or_already_confirmed"
	KindNotFoundInStorage         Kind = "not_found_in_storage"
	KindOwnershipMismatch         Kind = "ownership_mismatch"
	KindEmptyUpload               Kind = "empty_upload"
	KindTooLarge                  Kind = "too_large"
	KindMimeMismatch              Kind = "mime_mismatch"
	KindNoValidFiles              Kind = "no_valid_files"

	// KindInconsistentState marks a failed guarded quota decrement. The
	// operation that hit it must abort rather than proceed with a delete
	// it cannot account for.
	KindInconsistentState Kind = "inconsistent_state"
)

// Error carries a Kind alongside the message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
