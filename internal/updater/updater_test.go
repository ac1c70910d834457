package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewerVersion(t *testing.T) {
	cases := []struct {
		current string
		latest  string
		want    bool
	}{
		{"1.0.0", "1.0.1", true},
		{"1.0.0", "1.1.0", true},
		{"1.0.0", "2.0.0", true},
		{"v1.2.3", "v1.2.4", true},
		{"1.0.1", "1.0.0", false},
		{"1.0.0", "1.0.0", false},
		{"2.0", "2.0.0", false},
		{"1.9", "1.10", true},
		{"1.0.0", "v1.0.1-rc.1", true},
		{"dev", "1.0.0", false},
		{"1.0.0", "nightly", false},
		{"", "1.0.0", false},
	}
	for _, tc := range cases {
		t.Run(tc.current+"_vs_"+tc.latest, func(t *testing.T) {
			assert.Equal(t, tc.want, NewerVersion(tc.current, tc.latest))
		})
	}
}

func TestLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.Write([]byte(`{"tag_name":"v1.4.0","html_url":"https://example.com/r/v1.4.0","name":"v1.4.0"}`))
	}))
	defer srv.Close()

	c := &Checker{Endpoint: srv.URL, Client: srv.Client()}
	rel, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", rel.TagName)
	assert.Equal(t, "https://example.com/r/v1.4.0", rel.HTMLURL)
}

func TestLatestErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusForbidden)
		}))
		defer srv.Close()

		c := &Checker{Endpoint: srv.URL, Client: srv.Client()}
		_, err := c.Latest(context.Background())
		assert.ErrorContains(t, err, "unexpected status")
	})

	t.Run("missing tag", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := &Checker{Endpoint: srv.URL, Client: srv.Client()}
		_, err := c.Latest(context.Background())
		assert.ErrorContains(t, err, "no tag name")
	})
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"v2.0.0"}`))
	}))
	defer srv.Close()

	c := &Checker{Endpoint: srv.URL, Client: srv.Client()}

	rel, newer, err := c.Check(context.Background(), "1.0.0")
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, "v2.0.0", rel.TagName)

	_, newer, err = c.Check(context.Background(), "2.0.0")
	require.NoError(t, err)
	assert.False(t, newer)
}
