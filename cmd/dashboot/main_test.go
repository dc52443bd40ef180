package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(context.Background(), out, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	srv := httptest.NewServer(http.FileServer(http.Dir(writeSite(t, `{"server":"https://gitlab.example","token":"abc"}`))))
	t.Cleanup(srv.Close)
	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, logs, []string{"-log-format=json", "-unit=print", srv.URL + "/"})

	// --- Assert ---
	require.NoError(t, err)
	var printed map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &printed), "stdout must hold only the printed configuration")
	require.Equal(t, map[string]any{"server": "https://gitlab.example", "token": "abc"}, printed)
	require.Contains(t, logs.String(), "Dispatch finished.")
	require.NotContains(t, logs.String(), "token: abc")
}

func TestRun_SurfacedFetchFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"-on-failure=surface", srv.URL + "/"})

	require.ErrorContains(t, err, "404 Not Found")
}

func TestRun_UnitLoadFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.FileServer(http.Dir(writeSite(t, `{}`))))
	t.Cleanup(srv.Close)
	settings := filepath.Join(t.TempDir(), "dashboot.hcl")
	// The configuration loads fine; the unit itself cannot be built.
	require.NoError(t, os.WriteFile(settings, []byte(`unit "plugin" { path = "/does/not/exist.so" }`), 0o600))

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"-settings", settings, srv.URL + "/"})

	require.ErrorContains(t, err, "failed to open plugin")
}

func writeSite(t *testing.T, configJSON string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(configJSON), 0o600))
	return dir
}
