package command

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushub-backend/internal/config"
	"campushub-backend/internal/database"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "campushub.db")
	cfg.Uploads.Dir = filepath.Join(dir, "uploads")
	cfg.HTTP.StaticDir = filepath.Join(dir, "static")
	require.NoError(t, os.MkdirAll(cfg.HTTP.StaticDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.HTTP.StaticDir, "index.html"), []byte("<html>spa</html>"), 0o600))
	return cfg
}

func TestNewApp(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	db, err := database.Open(t.Context(), slog.Default(), database.Config{Path: cfg.Database.Path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e, _, _, err := newApp(t.Context(), cfg, slog.Default(), db)
	require.NoError(t, err)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	// client-side routes fall back to the SPA, API routes never do
	rec = get("/clubs/robotics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spa")

	rec = get("/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "spa")
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := loadConfigFile(missing, false)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Session.TTL, cfg.Session.TTL)

	_, err = loadConfigFile(missing, true)
	require.Error(t, err)
}

func TestReadPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "newline", input: "correct horse\nignored\n", want: "correct horse"},
		{name: "crlf", input: "correct horse\r\n", want: "correct horse"},
		{name: "no trailing newline", input: "correct horse", want: "correct horse"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := readPassword(strings.NewReader(test.input), &out, "password: ")
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
			assert.Empty(t, out.String(), "label is only shown on a terminal")
		})
	}

	_, err := readPassword(strings.NewReader(""), &bytes.Buffer{}, "password: ")
	require.Error(t, err)
}
