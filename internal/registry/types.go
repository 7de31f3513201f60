package registry

import (
	"fmt"

	"github.com/pubcask/pubcask/pkg/manifest"
)

// PackageVersion is one published version of a package as the listing
// API reports it. Never mutated after construction.
type PackageVersion struct {
	Version    string         `json:"version"`
	ArchiveURL string         `json:"archive_url"`
	Sha256     string         `json:"archive_sha256,omitempty"`
	Retracted  bool           `json:"retracted,omitempty"`
	Pubspec    manifest.Value `json:"pubspec"`
}

// Package is the ordered package view returned by the listing API.
// If Versions is non-empty, Latest points at one of its members; a
// package with zero usable versions is reported as absent instead.
type Package struct {
	Name           string           `json:"name"`
	Latest         *PackageVersion  `json:"latest"`
	Versions       []PackageVersion `json:"versions"`
	IsDiscontinued bool             `json:"isDiscontinued,omitempty"`
	ReplacedBy     string           `json:"replacedBy,omitempty"`
}

// UploadInstructions is what the initiate step hands the client: where
// to POST the archive and which form fields to carry along.
type UploadInstructions struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// ArchiveFilename is the canonical object name an archive is stored
// under in the durable registry.
func ArchiveFilename(pkg, version string) string {
	return fmt.Sprintf("%s-%s.tar.gz", pkg, version)
}
