package registry

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubcask/pubcask/internal/cache"
	"github.com/pubcask/pubcask/internal/session"
	"github.com/pubcask/pubcask/pkg/archive"
	"github.com/pubcask/pubcask/pkg/multipart"
)

// fakeStore is an in-memory ArtifactStore with failure injection.
type fakeStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	order       map[string][]string
	uploadErr     error
	downloadErr   error
	existsErr     error
	uploadCalls   int
	downloadCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		order:   make(map[string][]string),
	}
}

func objectKey(pkg, version, filename string) string {
	return pkg + "/" + version + "/" + filename
}

func (f *fakeStore) Upload(_ context.Context, pkg, version, filename string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[objectKey(pkg, version, filename)] = data
	f.order[pkg] = append(f.order[pkg], version)
	return nil
}

func (f *fakeStore) Download(_ context.Context, pkg, version, filename string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	data, ok := f.objects[objectKey(pkg, version, filename)]
	if !ok {
		return nil, fmt.Errorf("object %s not stored", objectKey(pkg, version, filename))
	}
	return data, nil
}

func (f *fakeStore) ListVersions(_ context.Context, pkg string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order[pkg]...), nil
}

func (f *fakeStore) VersionExists(_ context.Context, pkg, version string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, v := range f.order[pkg] {
		if v == version {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) downloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadCalls
}

// seed stores a valid archive for pkg@version directly, bypassing the
// publish handshake.
func (f *fakeStore) seed(t *testing.T, pkg, version string) {
	t.Helper()
	raw := makeArchive(t, pkg, version)
	require.NoError(t, f.Upload(context.Background(), pkg, version, ArchiveFilename(pkg, version), raw))
}

// seedCorrupt stores garbage bytes for pkg@version.
func (f *fakeStore) seedCorrupt(pkg, version string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectKey(pkg, version, ArchiveFilename(pkg, version))] = []byte("not an archive")
	f.order[pkg] = append(f.order[pkg], version)
}

func makeArchive(t *testing.T, name, version string) []byte {
	t.Helper()
	manifest := "name: " + name + "\nversion: " + version + "\n"

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "pubspec.yaml",
		Mode:     0o644,
		Size:     int64(len(manifest)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(manifest))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

const testBoundary = "testboundary"

// multipartBody builds an upload body carrying the archive and the
// optional session field.
func multipartBody(archiveBytes []byte, sessionToken string) (contentType string, body []byte) {
	var buf bytes.Buffer
	if sessionToken != "" {
		buf.WriteString("--" + testBoundary + "\r\n")
		buf.WriteString("Content-Disposition: form-data; name=\"session\"\r\n\r\n")
		buf.WriteString(sessionToken + "\r\n")
	}
	buf.WriteString("--" + testBoundary + "\r\n")
	buf.WriteString("Content-Disposition: form-data; name=\"file\"; filename=\"pkg.tar.gz\"\r\n")
	buf.WriteString("Content-Type: application/octet-stream\r\n\r\n")
	buf.Write(archiveBytes)
	buf.WriteString("\r\n--" + testBoundary + "--\r\n")
	return "multipart/form-data; boundary=" + testBoundary, buf.Bytes()
}

func newTestService(t *testing.T, store *fakeStore) (*Service, *session.Store) {
	t.Helper()
	sessions := session.NewStore(time.Minute)
	t.Cleanup(sessions.Close)
	return NewService(store, sessions, cache.NoopCache{}, "http://localhost:4040"), sessions
}

func TestInitiatePublish(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore())

	instr := svc.InitiatePublish()
	assert.Equal(t, "http://localhost:4040/api/packages/versions/newUpload", instr.URL)
	assert.NotEmpty(t, instr.Fields["session"])

	// Fresh token each time.
	again := svc.InitiatePublish()
	assert.NotEqual(t, instr.Fields["session"], again.Fields["session"])
}

func TestHandleUpload_FullHandshake(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(t, store)

	instr := svc.InitiatePublish()
	token := instr.Fields["session"]

	contentType, body := multipartBody(makeArchive(t, "demo", "1.0.0"), token)
	finalizeURL, err := svc.HandleUpload(contentType, body)
	require.NoError(t, err)
	assert.Contains(t, finalizeURL, "/api/packages/versions/newUploadFinish?session="+token)
	assert.Equal(t, 1, sessions.Len())

	pkg, version, err := svc.FinalizePublish(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "demo", pkg)
	assert.Equal(t, "1.0.0", version)
	assert.Equal(t, 1, store.uploadCalls)

	// The session is consumed: a second finalize reports it missing.
	_, _, err = svc.FinalizePublish(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHandleUpload_MintsTokenWhenAbsent(t *testing.T) {
	svc, sessions := newTestService(t, newFakeStore())

	contentType, body := multipartBody(makeArchive(t, "demo", "1.0.0"), "")
	finalizeURL, err := svc.HandleUpload(contentType, body)
	require.NoError(t, err)

	_, token, found := strings.Cut(finalizeURL, "session=")
	require.True(t, found)
	_, ok := sessions.Get(token)
	assert.True(t, ok)
}

func TestHandleUpload_BadContentType(t *testing.T) {
	svc, sessions := newTestService(t, newFakeStore())

	_, err := svc.HandleUpload("application/json", []byte("{}"))
	assert.ErrorIs(t, err, ErrBadContentType)
	assert.Equal(t, 0, sessions.Len())
}

func TestHandleUpload_MissingBoundary(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore())

	_, err := svc.HandleUpload("multipart/form-data", []byte("body"))
	assert.ErrorIs(t, err, multipart.ErrMissingBoundary)
}

func TestHandleUpload_MissingFile(t *testing.T) {
	svc, sessions := newTestService(t, newFakeStore())

	var buf bytes.Buffer
	buf.WriteString("--" + testBoundary + "\r\n")
	buf.WriteString("Content-Disposition: form-data; name=\"session\"\r\n\r\ntok\r\n")
	buf.WriteString("--" + testBoundary + "--\r\n")

	_, err := svc.HandleUpload("multipart/form-data; boundary="+testBoundary, buf.Bytes())
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.Equal(t, 0, sessions.Len())
}

func TestHandleUpload_InvalidArchiveStoresNoSession(t *testing.T) {
	svc, sessions := newTestService(t, newFakeStore())

	contentType, body := multipartBody([]byte("garbage bytes"), "tok")
	_, err := svc.HandleUpload(contentType, body)
	assert.ErrorIs(t, err, archive.ErrInvalidArchive)
	assert.Equal(t, 0, sessions.Len())
}

func TestFinalizePublish_MissingToken(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore())

	_, _, err := svc.FinalizePublish(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingSession)
}

func TestFinalizePublish_ConflictLeavesSessionAndSkipsUpload(t *testing.T) {
	store := newFakeStore()
	store.seed(t, "demo", "1.0.0")
	svc, sessions := newTestService(t, store)

	contentType, body := multipartBody(makeArchive(t, "demo", "1.0.0"), "tok")
	_, err := svc.HandleUpload(contentType, body)
	require.NoError(t, err)

	callsBefore := store.uploadCalls
	_, _, err = svc.FinalizePublish(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrVersionExists)
	assert.Equal(t, callsBefore, store.uploadCalls, "conflict must not reach the adapter upload")

	// Session stays for a (futile) retry rather than vanishing.
	_, ok := sessions.Get("tok")
	assert.True(t, ok)
}

func TestFinalizePublish_AdapterFailureRetainsSession(t *testing.T) {
	store := newFakeStore()
	svc, sessions := newTestService(t, store)

	contentType, body := multipartBody(makeArchive(t, "demo", "1.0.0"), "tok")
	_, err := svc.HandleUpload(contentType, body)
	require.NoError(t, err)

	store.uploadErr = errors.New("bucket unavailable")
	_, _, err = svc.FinalizePublish(context.Background(), "tok")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)

	_, ok := sessions.Get("tok")
	require.True(t, ok, "session must survive an adapter failure")

	// Clearing the failure lets the same session finalize: the
	// existence check re-runs on retry.
	store.uploadErr = nil
	pkg, version, err := svc.FinalizePublish(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "demo", pkg)
	assert.Equal(t, "1.0.0", version)
	assert.Equal(t, 0, sessions.Len())
}

func TestDownloadArchive(t *testing.T) {
	store := newFakeStore()
	store.seed(t, "demo", "1.0.0")
	svc, _ := newTestService(t, store)

	data, err := svc.DownloadArchive(context.Background(), "demo", "1.0.0")
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = svc.DownloadArchive(context.Background(), "demo", "9.9.9")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}
