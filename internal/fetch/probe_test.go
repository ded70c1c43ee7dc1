package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAvailableSite(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
	}))
	defer srv.Close()

	res := newTestFetcher(t).Check(context.Background(), srv.URL)
	assert.True(t, res.Available)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Error)
	assert.Equal(t, []string{http.MethodHead}, methods, "HEAD suffices when accepted")
}

func TestCheckFallsBackToGET(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	res := newTestFetcher(t).Check(context.Background(), srv.URL)
	assert.True(t, res.Available)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{http.MethodHead, http.MethodGet}, methods)
}

func TestCheckErrorStatusIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res := newTestFetcher(t).Check(context.Background(), srv.URL)
	assert.False(t, res.Available)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCheckRedirectStillAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			http.Redirect(w, r, "/", http.StatusMovedPermanently)
			return
		}
	}))
	defer srv.Close()

	res := newTestFetcher(t).Check(context.Background(), srv.URL+"/moved")
	assert.True(t, res.Available, "the client follows the redirect")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCheckUnreachableHost(t *testing.T) {
	res := newTestFetcher(t).Check(context.Background(), "http://127.0.0.1:1/")
	assert.False(t, res.Available)
	assert.Zero(t, res.StatusCode)
	assert.NotEmpty(t, res.Error)
}

func TestCheckDoesNotTouchContentCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><title>t</title></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	f.Check(context.Background(), srv.URL)
	_, hit := f.cache.Get(srv.URL)
	assert.False(t, hit)
}
