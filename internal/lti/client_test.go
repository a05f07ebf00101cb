package lti

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReplaceResult(t *testing.T) {
	ctx := context.Background()

	t.Run("posts a signed envelope", func(t *testing.T) {
		var gotAuth, gotContentType, gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotContentType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			io.WriteString(w, successResponse)
		}))
		defer server.Close()

		client := NewClient(ClientConfig{ConsumerKey: "key", ConsumerSecret: "secret"})
		err := client.ReplaceResult(ctx, server.URL, "sourced-abc", "0.8")
		require.NoError(t, err)

		assert.Equal(t, "application/xml", gotContentType)
		assert.True(t, strings.HasPrefix(gotAuth, "OAuth "))
		assert.Contains(t, gotAuth, "oauth_body_hash=")
		assert.Contains(t, gotBody, "<sourcedId>sourced-abc</sourcedId>")
		assert.Contains(t, gotBody, "<textString>0.8</textString>")
	})

	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(ClientConfig{ConsumerKey: "key", ConsumerSecret: "secret"})
		err := client.ReplaceResult(ctx, server.URL, "sourced-abc", "0.8")
		assert.Error(t, err)
	})

	t.Run("200 with failure envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, strings.Replace(successResponse, "success", "failure", 1))
		}))
		defer server.Close()

		client := NewClient(ClientConfig{ConsumerKey: "key", ConsumerSecret: "secret"})
		err := client.ReplaceResult(ctx, server.URL, "sourced-abc", "0.8")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failure")
	})

	t.Run("unreachable server", func(t *testing.T) {
		client := NewClient(ClientConfig{ConsumerKey: "key", ConsumerSecret: "secret"})
		err := client.ReplaceResult(ctx, "http://127.0.0.1:1/outcomes", "sourced-abc", "0.8")
		assert.Error(t, err)
	})
}
