// Package registry implements the package-repository protocol engine:
// the initiate/upload/finalize publish handshake, the session
// bookkeeping behind it, and the listing and download read paths.
package registry

import (
	"context"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pubcask/pubcask/internal/cache"
	"github.com/pubcask/pubcask/internal/session"
	"github.com/pubcask/pubcask/internal/storage"
	"github.com/pubcask/pubcask/pkg/archive"
	"github.com/pubcask/pubcask/pkg/logger"
	"github.com/pubcask/pubcask/pkg/multipart"
	"github.com/pubcask/pubcask/pkg/validation"
)

// Form field names of the publish upload step.
const (
	fileField    = "file"
	sessionField = "session"
)

// Service orchestrates the publish handshake and the read paths. It is
// the exclusive owner of the session store.
type Service struct {
	store    storage.ArtifactStore
	sessions *session.Store
	cache    cache.ManifestCache
	baseURL  string
}

// NewService wires the protocol engine to its collaborators. baseURL
// is the externally visible server address used in returned URLs, e.g.
// "http://localhost:4040".
func NewService(store storage.ArtifactStore, sessions *session.Store, manifests cache.ManifestCache, baseURL string) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		cache:    manifests,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// InitiatePublish starts a publish attempt: it hands the client the
// upload URL and a fresh session token. Nothing is recorded yet; the
// token only becomes live once an upload lands under it.
func (s *Service) InitiatePublish() UploadInstructions {
	return UploadInstructions{
		URL:    s.baseURL + "/api/packages/versions/newUpload",
		Fields: map[string]string{sessionField: uuid.NewString()},
	}
}

// HandleUpload accepts the multipart upload step. On success the
// archive is introspected and parked in a new session, and the URL the
// client must call to finalize is returned. No partial session is ever
// stored: any failure before the final Put leaves the table untouched.
func (s *Service) HandleUpload(contentType string, body []byte) (finalizeURL string, err error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return "", ErrBadContentType
	}

	form, err := multipart.Decode(body, params["boundary"], fileField)
	if err != nil {
		return "", err
	}

	data, ok := form.File(fileField)
	if !ok {
		return "", ErrMissingFile
	}

	token, ok := form.Text(sessionField)
	if !ok || token == "" {
		token = uuid.NewString()
	}

	pa, err := archive.Introspect(data)
	if err != nil {
		return "", err
	}

	s.sessions.Put(&session.Session{
		Token:     token,
		Archive:   pa,
		CreatedAt: time.Now(),
	})

	logger.Info("Archive uploaded",
		"package", pa.Name, "version", pa.Version, "bytes", len(data))

	return s.baseURL + "/api/packages/versions/newUploadFinish?session=" + url.QueryEscape(token), nil
}

// FinalizePublish completes the handshake for the given session token.
// The session is consumed only on success; a conflict or an adapter
// failure leaves it intact so the client can retry finalize without
// re-uploading (the existence check runs again on retry).
func (s *Service) FinalizePublish(ctx context.Context, token string) (pkg, version string, err error) {
	if token == "" {
		return "", "", ErrMissingSession
	}

	sess, ok := s.sessions.Get(token)
	if !ok {
		return "", "", ErrSessionNotFound
	}
	pa := sess.Archive

	exists, err := s.store.VersionExists(ctx, pa.Name, pa.Version)
	if err != nil {
		return "", "", &UpstreamError{Op: "existence check", Err: err}
	}
	if exists {
		return "", "", ErrVersionExists
	}

	if err := s.store.Upload(ctx, pa.Name, pa.Version, ArchiveFilename(pa.Name, pa.Version), pa.Bytes); err != nil {
		return "", "", &UpstreamError{Op: "upload", Err: err}
	}

	s.cache.Put(pa.Name, pa.Version, &cache.Entry{Pubspec: pa.Manifest, Sha256: pa.Sha256})
	s.sessions.Remove(token)

	logger.Info("Package published", "package", pa.Name, "version", pa.Version)
	return pa.Name, pa.Version, nil
}

// DownloadArchive returns the raw archive bytes for one version.
func (s *Service) DownloadArchive(ctx context.Context, pkg, version string) ([]byte, error) {
	if err := validation.ValidatePackageName(pkg); err != nil {
		return nil, ErrVersionNotFound
	}
	if err := validation.ValidateVersionLabel(version); err != nil {
		return nil, ErrVersionNotFound
	}

	exists, err := s.store.VersionExists(ctx, pkg, version)
	if err != nil {
		return nil, &UpstreamError{Op: "existence check", Err: err}
	}
	if !exists {
		return nil, ErrVersionNotFound
	}

	data, err := s.store.Download(ctx, pkg, version, ArchiveFilename(pkg, version))
	if err != nil {
		return nil, &UpstreamError{Op: "download", Err: err}
	}
	return data, nil
}
