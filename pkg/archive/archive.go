// Package archive inspects uploaded package archives. An archive is a
// gzip-compressed tar whose entries include a pubspec.yaml; introspection
// derives the package identity (name, version) and the content hash
// that the repository protocol uses as its primary keys.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pubcask/pubcask/pkg/manifest"
	"github.com/pubcask/pubcask/pkg/validation"
)

// ManifestFilename is the manifest entry looked up inside the tar.
const ManifestFilename = "pubspec.yaml"

// ErrInvalidArchive is the single error kind the introspector reports.
// Callers do not need to distinguish a missing pubspec from a malformed
// one; wrap details for the logs, match on this for control flow.
var ErrInvalidArchive = errors.New("invalid package archive")

// PackageArchive is the decoded result of one uploaded blob.
// Immutable once constructed.
type PackageArchive struct {
	Name     string
	Version  string
	Manifest manifest.Value
	Bytes    []byte
	// Sha256 is the hex digest of the compressed archive bytes as
	// uploaded, not of the decompressed content.
	Sha256 string
}

// Introspect unpacks raw (a .tar.gz), parses the embedded pubspec and
// returns the archive's identity. Any failure along the way reports
// ErrInvalidArchive.
func Introspect(raw []byte) (*PackageArchive, error) {
	doc, err := readManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	parsed, err := manifest.ParseYAML(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	name, err := parsed.GetString("name")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if err := validation.ValidatePackageName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	version, err := parsed.GetString("version")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if _, err := semver.StrictNewVersion(version); err != nil {
		return nil, fmt.Errorf("%w: version %q: %v", ErrInvalidArchive, version, err)
	}

	sum := sha256.Sum256(raw)

	return &PackageArchive{
		Name:     name,
		Version:  version,
		Manifest: parsed,
		Bytes:    raw,
		Sha256:   hex.EncodeToString(sum[:]),
	}, nil
}

// readManifest decompresses raw and scans the tar for the manifest
// entry, returning its content.
func readManifest(raw []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gzip: %v", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no %s entry in archive", ManifestFilename)
		}
		if err != nil {
			return nil, fmt.Errorf("tar: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if !strings.HasSuffix(hdr.Name, ManifestFilename) {
			continue
		}
		doc, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %v", hdr.Name, err)
		}
		return doc, nil
	}
}
