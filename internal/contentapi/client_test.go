package contentapi

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

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestGetPost_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/123", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"tweet":{"text":"hello","images":["a.jpg","b.jpg"]}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/api/")
	require.NoError(t, err)

	post, err := c.GetPost(context.Background(), "123")
	require.NoError(t, err)
	require.True(t, post.Success)
	require.Equal(t, "hello", post.Tweet.Text)
	require.Equal(t, []string{"a.jpg", "b.jpg"}, post.Tweet.Images)
}

func TestGetPost_Unsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	post, err := c.GetPost(context.Background(), "1")
	require.NoError(t, err)
	require.False(t, post.Success)
}

func TestGetPost_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.GetPost(context.Background(), "1")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.HTTPStatusCode())
}

func TestGetPost_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.GetPost(context.Background(), "1")
	require.Error(t, err)
}

func TestGetPost_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.GetPost(context.Background(), "1")
	require.Error(t, err)
}
