package cli

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDecodesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests","retry_after":12}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "player-1").As("admin-1")
	err := c.Post("/api/v1/sessions/party/rounds", nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "rate_limited", apiErr.Code)
	assert.Equal(t, 12, apiErr.RetryAfter)
	assert.Contains(t, err.Error(), "retry after 12s")
}

func TestClientNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL, "").Get("/api/v1/health", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/api/v1/sessions/party/ws"},
		{"https://game.example.com/", "wss://game.example.com/api/v1/sessions/party/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			got, err := NewClient(tt.server, "").SocketURL("party")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSongs(t *testing.T) {
	songs, err := parseSongs([]string{"spotify:track:a=1985", "https://x.test/?id=7=2001"})
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "spotify:track:a", songs[0].URI)
	assert.Equal(t, 1985, songs[0].Year)
	assert.Equal(t, "https://x.test/?id=7", songs[1].URI)
	assert.Equal(t, 2001, songs[1].Year)

	_, err = parseSongs([]string{"spotify:track:a"})
	assert.Error(t, err)
	_, err = parseSongs([]string{"spotify:track:a=soon"})
	assert.Error(t, err)
}

func TestTokensRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := &Config{
		TokenFile:      filepath.Join(dir, "nested", "token"),
		AdminTokenFile: filepath.Join(dir, "admin_token"),
	}

	// Missing files are fine
	require.NoError(t, c.LoadTokens())
	assert.Empty(t, c.Token)
	assert.Empty(t, c.AdminToken)

	require.NoError(t, c.SaveToken("player-1"))
	require.NoError(t, os.WriteFile(c.AdminTokenFile, []byte("admin-1\n"), 0600))

	loaded := &Config{TokenFile: c.TokenFile, AdminTokenFile: c.AdminTokenFile}
	require.NoError(t, loaded.LoadTokens())
	assert.Equal(t, "player-1", loaded.Token)
	assert.Equal(t, "admin-1", loaded.AdminToken)

	// Explicit tokens win over files
	flagged := &Config{Token: "flag", TokenFile: c.TokenFile, AdminTokenFile: c.AdminTokenFile}
	require.NoError(t, flagged.LoadTokens())
	assert.Equal(t, "flag", flagged.Token)
}
