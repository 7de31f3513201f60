// Package validation checks client-supplied identifiers before they
// reach storage paths or upstream object keys.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Package names follow the pub convention: lowercase letters, digits
// and underscores, not starting with a digit.
var packageNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Version labels as they appear in URLs and directory names: dotted
// numeric/alphanumeric segments with the usual pre-release and build
// separators. The set deliberately excludes every path metacharacter.
var versionLabelRegex = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.+-]*$`)

// MaxPackageNameLength matches the limit pub.dev enforces.
const MaxPackageNameLength = 64

// ValidatePackageName reports whether name is a well-formed package
// name. Anything that fails here must never be joined into a
// filesystem path or remote object key.
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	if len(name) > MaxPackageNameLength {
		return fmt.Errorf("package name too long: %d chars (max %d)", len(name), MaxPackageNameLength)
	}
	if !packageNameRegex.MatchString(name) {
		return fmt.Errorf("invalid package name %q: must match [a-z_][a-z0-9_]*", name)
	}
	return nil
}

// ValidateVersionLabel reports whether label is safe to use as a
// version directory or object-key segment.
func ValidateVersionLabel(label string) error {
	if label == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if len(label) > 128 {
		return fmt.Errorf("version too long: %d chars (max 128)", len(label))
	}
	if strings.Contains(label, "..") {
		return fmt.Errorf("version contains path traversal sequence")
	}
	if !versionLabelRegex.MatchString(label) {
		return fmt.Errorf("invalid version %q", label)
	}
	return nil
}
