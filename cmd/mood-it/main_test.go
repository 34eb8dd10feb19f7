package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestMoodsCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "moods")
	require.NoError(t, err)
	assert.Contains(t, out, "MOOD")
	assert.Contains(t, out, "happy")
}

func TestCentroidsBuildCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LOG_LEVEL", "error")
	path := filepath.Join(dir, "table.json")
	t.Setenv("CENTROID_PATH", path)

	out, err := execute(t, "centroids", "build")
	require.NoError(t, err)
	assert.Contains(t, out, "mood centroids with")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestClassifyRequiresMood(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "classify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--mood is required")
}

func TestClassifyRequiresCredentials(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SPOTIFY_ID", "")
	t.Setenv("SPOTIFY_SECRET", "")

	_, err := execute(t, "classify", "--mood", "happy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPOTIFY_ID")
}
