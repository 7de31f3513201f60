package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteStore_UploadSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody []byte

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	store := NewRemoteStore(ts.URL, StaticToken("secret-token"))
	err := store.Upload(context.Background(), "demo", "1.0.0", "demo-1.0.0.tar.gz", []byte("bytes"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "/demo/1.0.0/demo-1.0.0.tar.gz", gotPath)
	assert.Equal(t, []byte("bytes"), gotBody)
}

func TestRemoteStore_UploadErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	store := NewRemoteStore(ts.URL, StaticToken(""))
	err := store.Upload(context.Background(), "demo", "1.0.0", "f.tar.gz", nil)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusForbidden, remoteErr.Status)
}

func TestRemoteStore_Download(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/demo/1.0.0/demo-1.0.0.tar.gz" {
			w.Write([]byte("archive-bytes"))
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	store := NewRemoteStore(ts.URL, StaticToken(""))

	data, err := store.Download(context.Background(), "demo", "1.0.0", "demo-1.0.0.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, []byte("archive-bytes"), data)

	_, err = store.Download(context.Background(), "demo", "9.9.9", "demo-9.9.9.tar.gz")
	assert.Error(t, err)
}

func TestRemoteStore_ListVersions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/demo":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"versions":["1.0.0","1.1.0"]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	store := NewRemoteStore(ts.URL, StaticToken(""))

	versions, err := store.ListVersions(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, versions)

	// Unknown package reads as zero versions, not an error.
	versions, err = store.ListVersions(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestRemoteStore_VersionExists(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/demo/1.0.0/demo-1.0.0.tar.gz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	store := NewRemoteStore(ts.URL, StaticToken(""))

	exists, err := store.VersionExists(context.Background(), "demo", "1.0.0")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.VersionExists(context.Background(), "demo", "2.0.0")
	require.NoError(t, err)
	assert.False(t, exists)
}
