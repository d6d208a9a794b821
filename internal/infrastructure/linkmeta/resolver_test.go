package linkmeta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveTitle(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"og title wins", `<html><head><meta property="og:title" content="The Go Tour"><title>Tour</title></head></html>`, "The Go Tour"},
		{"title tag", `<html><head><title>  Effective
			Go </title></head><body><h1>Other</h1></body></html>`, "Effective Go"},
		{"heading fallback", `<html><body><h1>Go by Example</h1></body></html>`, "Go by Example"},
	}

	r := NewResolver(time.Second, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tc.body)
			got, err := r.ResolveTitle(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveTitle_NoTitle(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><body><p>nothing here</p></body></html>`)
	_, err := NewResolver(time.Second, nil).ResolveTitle(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, ErrNoTitle))
}

func TestResolveTitle_HTTPError(t *testing.T) {
	srv := serve(t, http.StatusNotFound, `<html><head><title>Not Found</title></head></html>`)
	_, err := NewResolver(time.Second, nil).ResolveTitle(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestResolveTitle_RejectsNonHTTP(t *testing.T) {
	_, err := NewResolver(time.Second, nil).ResolveTitle(context.Background(), "ftp://example.com/file")
	assert.Error(t, err)
}
