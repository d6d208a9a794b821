package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRepositories_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/octo/repos", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		assert.Equal(t, "asc", r.URL.Query().Get("direction"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"hello","full_name":"octo/hello","html_url":"https://github.com/octo/hello","stargazers_count":3,"created_at":"2020-01-02T03:04:05Z"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "id", "secret", nil)
	repos, err := c.ListRepositories(context.Background(), "octo")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "octo/hello", repos[0].FullName)
	assert.Equal(t, 3, repos[0].Stars)
	assert.Equal(t, 2020, repos[0].CreatedAt.Year())
}

func TestListRepositories_NonOKIsNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"Not Found"}`, status)
		}))

		c := NewClient(srv.URL, "", "", nil)
		_, err := c.ListRepositories(context.Background(), "ghost")
		srv.Close()

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("status %d: expected ErrNotFound, got %v", status, err)
		}
	}
}

func TestListRepositories_NoCredentialsWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	repos, err := NewClient(srv.URL, "id", "", nil).ListRepositories(context.Background(), "octo")
	require.NoError(t, err)
	assert.Empty(t, repos)
}
