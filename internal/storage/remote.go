package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pubcask/pubcask/pkg/logger"
)

// RemoteError wraps failures talking to the remote artifact registry.
type RemoteError struct {
	Op     string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote store %s: unexpected status %d", e.Op, e.Status)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RemoteStore talks to a generic cloud artifact registry over HTTP.
// Objects live at <base>/<pkg>/<version>/<filename>; the listing
// endpoint is GET <base>/<pkg> returning {"versions": [...]}.
type RemoteStore struct {
	base   string
	tokens TokenSource
	client *http.Client
}

// NewRemoteStore builds a store for the registry rooted at base.
func NewRemoteStore(base string, tokens TokenSource) *RemoteStore {
	return &RemoteStore{
		base:   base,
		tokens: tokens,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *RemoteStore) objectURL(parts ...string) string {
	u := s.base
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

func (s *RemoteStore) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve registry token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// Upload stores an archive object in the remote registry.
func (s *RemoteStore) Upload(ctx context.Context, pkg, version, filename string, data []byte) error {
	req, err := s.newRequest(ctx, http.MethodPut, s.objectURL(pkg, version, filename), bytes.NewReader(data))
	if err != nil {
		return &RemoteError{Op: "upload", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return &RemoteError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{Op: "upload", Status: resp.StatusCode}
	}

	logger.Debug("Archive uploaded to remote registry",
		"package", pkg, "version", version, "bytes", len(data))
	return nil
}

// Download retrieves an archive object from the remote registry.
func (s *RemoteStore) Download(ctx context.Context, pkg, version, filename string) ([]byte, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.objectURL(pkg, version, filename), nil)
	if err != nil {
		return nil, &RemoteError{Op: "download", Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Op: "download", Status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// ListVersions queries the registry's listing endpoint. A 404 means
// the package is unknown, which reads as zero versions.
func (s *RemoteStore) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.objectURL(pkg), nil)
	if err != nil {
		return nil, &RemoteError{Op: "list", Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Op: "list", Status: resp.StatusCode}
	}

	var listing struct {
		Versions []string `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, &RemoteError{Op: "list", Err: err}
	}
	return listing.Versions, nil
}

// VersionExists probes the registry with a HEAD request for the
// version's archive object.
func (s *RemoteStore) VersionExists(ctx context.Context, pkg, version string) (bool, error) {
	filename := fmt.Sprintf("%s-%s.tar.gz", pkg, version)
	req, err := s.newRequest(ctx, http.MethodHead, s.objectURL(pkg, version, filename), nil)
	if err != nil {
		return false, &RemoteError{Op: "exists", Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, &RemoteError{Op: "exists", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &RemoteError{Op: "exists", Status: resp.StatusCode}
	}
}
