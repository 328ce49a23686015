package mediastore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubS3 answers just enough of the S3 API for the store: bucket location,
// bucket HEAD (scripted per call) and object PUT.
func stubS3(t *testing.T, headStatus func(call int) int) (*httptest.Server, *int, *int) {
	t.Helper()
	var mu sync.Mutex
	headCalls := 0
	putObjects := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		if r.Method == http.MethodGet && r.URL.Query().Has("location") {
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
				`<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`))
			return
		}

		if r.Method == http.MethodHead {
			headCalls++
			w.WriteHeader(headStatus(headCalls))
			return
		}

		if r.Method == http.MethodPut && strings.Count(strings.Trim(r.URL.Path, "/"), "/") >= 1 {
			putObjects++
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))

	return srv, &headCalls, &putObjects
}

func newStubStore(t *testing.T, srv *httptest.Server) *Store {
	t.Helper()
	endpoint := strings.TrimPrefix(srv.URL, "http://")
	store, err := NewStore(endpoint, "access", "secret", "generations", false)
	require.NoError(t, err)
	return store
}

func TestSaveUploadsAndReturnsURL(t *testing.T) {
	srv, _, putObjects := stubS3(t, func(int) int { return http.StatusOK })
	defer srv.Close()

	store := newStubStore(t, srv)
	url, err := store.Save(context.Background(), "abc123.png", []byte("png-bytes"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/generations/abc123.png", url)
	assert.Equal(t, 1, *putObjects)
}

func TestEnsureBucketRetriesAfterTransientFailure(t *testing.T) {
	srv, headCalls, putObjects := stubS3(t, func(call int) int {
		if call == 1 {
			return http.StatusForbidden
		}
		return http.StatusOK
	})
	defer srv.Close()

	store := newStubStore(t, srv)

	_, err := store.Save(context.Background(), "first.png", []byte("x"), "image/png")
	require.Error(t, err)
	assert.Equal(t, 0, *putObjects)

	// the failed check is not latched; the next save runs it again
	url, err := store.Save(context.Background(), "second.png", []byte("x"), "image/png")
	require.NoError(t, err)
	assert.Contains(t, url, "/generations/second.png")
	assert.Equal(t, 2, *headCalls)
	assert.Equal(t, 1, *putObjects)
}

func TestEnsureBucketRunsOnce(t *testing.T) {
	srv, headCalls, _ := stubS3(t, func(int) int { return http.StatusOK })
	defer srv.Close()

	store := newStubStore(t, srv)
	_, err := store.Save(context.Background(), "a.png", []byte("x"), "image/png")
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "b.png", []byte("x"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, 1, *headCalls)
}
