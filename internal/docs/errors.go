package docs

import "errors"

// The client collapses remote failures into four kinds the uploader
// matches on: transient (retry-eligible), invalid entry (permanent),
// authentication, and folder creation.

// TransientError wraps an error that is likely temporary and safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError, meaning the caller may retry the operation as-is.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// InvalidEntryError means the service permanently rejected the uploaded
// content (malformed name, unconvertible payload). Retrying the same
// file cannot succeed.
type InvalidEntryError struct {
	Reason string
}

func (e *InvalidEntryError) Error() string { return e.Reason }

// IsInvalidEntry reports whether err marks a permanently rejected upload.
func IsInvalidEntry(err error) bool {
	var ie *InvalidEntryError
	return errors.As(err, &ie)
}

// ErrAuthentication is returned when the service rejects the supplied
// credentials or token.
var ErrAuthentication = errors.New("authentication failed")

// CreationError wraps a failed folder creation. The uploader treats it
// as recoverable and falls back to the nearest resolved ancestor.
type CreationError struct {
	Name string
	Err  error
}

func (e *CreationError) Error() string { return "creating folder " + e.Name + ": " + e.Err.Error() }
func (e *CreationError) Unwrap() error { return e.Err }
