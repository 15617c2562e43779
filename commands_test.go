package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useSettings points the commands at a settings file whose content
// directory lives under a temp dir, and clears the CMS environment.
func useSettings(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	contentDir := filepath.Join(dir, "content")
	path := filepath.Join(dir, "settings.yaml")
	yaml := fmt.Sprintf("content_directory: %q\nextractor:\n  timeout: 5s\npublisher:\n  requests_per_second: 0\n", contentDir)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	previous := settingsPath
	settingsPath = path
	t.Cleanup(func() { settingsPath = previous })

	for _, name := range []string{"WORDPRESS_URL", "WORDPRESS_USERNAME", "WORDPRESS_PASSWORD"} {
		t.Setenv(name, "")
	}
	return contentDir
}

func TestRunFetchReport(t *testing.T) {
	useSettings(t)
	page := serveHTML(t, "text/html", `<title>Demo</title><main>Price: $5/mo. Key feature: search.</main>`)

	var out bytes.Buffer
	require.NoError(t, runFetch(context.Background(), &out, page.URL))

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "Demo", report["title"])
	assert.Equal(t, []any{"$5/mo"}, report["prices"])
	assert.Equal(t, page.URL, report["url"])
	assert.NotContains(t, report, "Markdown")
}

func TestRunFetchErrorReport(t *testing.T) {
	useSettings(t)
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer page.Close()

	var out bytes.Buffer
	err := runFetch(context.Background(), &out, page.URL)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, KindHTTPError, extractionErr.Kind)

	var report fetchErrorReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, err.Error(), report.Error)
	assert.Equal(t, page.URL, report.URL)
	assert.False(t, report.ExtractedAt.IsZero())
}

func TestRunPublishMissingCredentials(t *testing.T) {
	contentDir := useSettings(t)
	final := filepath.Join(contentDir, "a_final.md")
	writeArticle(t, final, "# A\n")
	t.Setenv("WORDPRESS_URL", "https://blog.example.com")

	var out, errOut bytes.Buffer
	err := runPublish(context.Background(), &out, &errOut)

	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, []string{"WORDPRESS_USERNAME", "WORDPRESS_PASSWORD"}, configErr.Missing)
	assert.Contains(t, errOut.String(), "- WORDPRESS_USERNAME")
	assert.Contains(t, errOut.String(), "- WORDPRESS_PASSWORD")
	assert.NotContains(t, errOut.String(), "- WORDPRESS_URL")
	assert.Empty(t, out.String())

	entries, err := os.ReadDir(contentDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a_final.md", entries[0].Name())
}

func TestRunPublish(t *testing.T) {
	contentDir := useSettings(t)
	writeArticle(t, filepath.Join(contentDir, "a_final.md"), "---\ntitle: A\n---\nbody\n")
	server, _ := xmlrpcServer(t, http.StatusOK, newPostResponse)
	t.Setenv("WORDPRESS_URL", server.URL)
	t.Setenv("WORDPRESS_USERNAME", "admin")
	t.Setenv("WORDPRESS_PASSWORD", "secret")

	var out, errOut bytes.Buffer
	require.NoError(t, runPublish(context.Background(), &out, &errOut))

	assert.Contains(t, out.String(), "Succeeded: 1")
	assert.Contains(t, out.String(), "Failed: 0")
	assert.FileExists(t, filepath.Join(contentDir, processedSubdir, "a_final.md"))
}

func TestRunPublishReportsFailures(t *testing.T) {
	contentDir := useSettings(t)
	final := filepath.Join(contentDir, "a_final.md")
	writeArticle(t, final, "# A\n")
	server, _ := xmlrpcServer(t, http.StatusOK, faultResponse)
	t.Setenv("WORDPRESS_URL", server.URL)
	t.Setenv("WORDPRESS_USERNAME", "admin")
	t.Setenv("WORDPRESS_PASSWORD", "wrong")

	var out, errOut bytes.Buffer
	err := runPublish(context.Background(), &out, &errOut)

	assert.Error(t, err)
	assert.Contains(t, out.String(), "Failed: 1")
	assert.FileExists(t, final)
}
