// Package storage provides the durable artifact store behind the
// repository: the core protocol engine only ever talks to the
// ArtifactStore interface, never to a concrete backend.
package storage

import "context"

// ArtifactStore defines the contract for durable package-archive storage.
type ArtifactStore interface {
	// Upload stores an archive under (pkg, version, filename).
	Upload(ctx context.Context, pkg, version, filename string, data []byte) error

	// Download retrieves the archive stored under (pkg, version, filename).
	Download(ctx context.Context, pkg, version, filename string) ([]byte, error)

	// ListVersions returns all stored version labels for a package.
	// An unknown package yields an empty slice, never an error.
	ListVersions(ctx context.Context, pkg string) ([]string, error)

	// VersionExists checks whether any archive is stored for (pkg, version).
	VersionExists(ctx context.Context, pkg, version string) (bool, error)
}

// TokenSource supplies the bearer token the remote backend expects.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource wrapping a fixed token string, typically
// loaded from configuration or the environment.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}
