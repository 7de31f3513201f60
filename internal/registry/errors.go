package registry

import "errors"

// Protocol-level failures, mapped to structured error bodies at the
// HTTP boundary.
var (
	// ErrBadContentType indicates an upload without a usable
	// multipart/form-data content type.
	ErrBadContentType = errors.New("content type must be multipart/form-data")

	// ErrMissingFile indicates a decoded upload form with no archive field.
	ErrMissingFile = errors.New("upload is missing the archive file field")

	// ErrMissingSession indicates a finalize request without a session token.
	ErrMissingSession = errors.New("missing session parameter")

	// ErrSessionNotFound indicates an unknown, expired or already
	// consumed session token.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrPackageNotFound indicates a package with no usable versions.
	ErrPackageNotFound = errors.New("package not found")

	// ErrVersionNotFound indicates a download of a version that is not stored.
	ErrVersionNotFound = errors.New("package version not found")

	// ErrVersionExists indicates a finalize for a version already in
	// the durable registry.
	ErrVersionExists = errors.New("package version already exists")
)

// UpstreamError wraps a registry-adapter failure so handlers can tell
// infrastructure trouble apart from client mistakes.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return "registry adapter " + e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
