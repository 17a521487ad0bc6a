package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smeup/signmeup-client/internal/publish"
)

func writeManifest(t *testing.T, dir string) {
	t.Helper()
	manifest := `{"name": "signmeup", "version": "1.2.3"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0o644))
}

// clearTokens unsets the credentials for the test; t.Setenv restores them.
func clearTokens(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GITHUB_TOKEN", "GH_TOKEN", "GITHUB_API_URL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestRunReleaseMissingToken(t *testing.T) {
	clearTokens(t)
	dir := t.TempDir()
	writeManifest(t, dir)

	var logs, out bytes.Buffer
	err := runRelease(context.Background(), nil, dir, &logs, &out)
	assert.ErrorIs(t, err, publish.ErrMissingToken)
	assert.Empty(t, out.String())
}

func TestRunReleaseMissingManifest(t *testing.T) {
	clearTokens(t)

	var logs, out bytes.Buffer
	err := runRelease(context.Background(), nil, t.TempDir(), &logs, &out)
	assert.ErrorIs(t, err, publish.ErrManifest)
}

func TestRunReleaseTokenFromDotEnv(t *testing.T) {
	clearTokens(t)

	var (
		mu   sync.Mutex
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeManifest(t, dir)
	dotenv := "GITHUB_TOKEN=from-dotenv\nGITHUB_API_URL=" + srv.URL + "/\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))

	var logs, out bytes.Buffer
	err := runRelease(context.Background(), []string{"--owner", "smeup", "--repo", "builds"}, dir, &logs, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v1.2.3")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer from-dotenv", auth)
}
