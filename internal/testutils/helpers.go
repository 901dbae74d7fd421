package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/openportal/pkg/config"
	"github.com/aretw0/openportal/pkg/domain"
)

// WriteFiles creates a temporary directory holding the given files (name ->
// content) and returns its absolute path. Names may contain subdirectories.
// It fails the test immediately on error.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write %s", name)
	}
	return dir
}

// MustParseGraph decodes a graph written inline in a test. The extension of
// name selects JSON or YAML.
func MustParseGraph(t *testing.T, name, src string) *domain.ActionNode {
	t.Helper()
	node, err := config.ParseActionGraph(name, []byte(src))
	require.NoError(t, err, "Failed to parse graph %s", name)
	return node
}
