package locator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/spectra/internal/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestLocate_FiltersAndOrders(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b/routes.py":                 "x = 1",
		"a/Widget.java":               "class Widget {}",
		"main.py":                     "x = 1",
		"README.md":                   "# readme",
		"node_modules/pkg/index.py":   "x = 1",
		".venv/lib/site.py":           "x = 1",
		"target/classes/Gen.java":     "class Gen {}",
		"__pycache__/main.cpython.py": "x = 1",
		".hidden/secret.py":           "x = 1",
	})

	result, err := Locate(root, Options{Extensions: []string{".py", ".java"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a/Widget.java", "b/routes.py", "main.py"}, result.Paths())
	assert.Empty(t, result.Skipped)
	assert.Equal(t, "x = 1", string(result.Sources[1].Content))
}

func TestLocate_SkipsOversizedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.py": "x = 1",
		"big.py":   strings.Repeat("#", 64),
	})

	result, err := Locate(root, Options{Extensions: []string{".py"}, MaxFileSize: 32})
	require.NoError(t, err)

	assert.Equal(t, []string{"small.py"}, result.Paths())
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, errors.FileAccessErrorCode, result.Skipped[0].Reason.ErrorCode())
	assert.Contains(t, result.Skipped[0].Reason.Error(), "exceeds limit")
}

func TestLocate_MissingRootIsFatal(t *testing.T) {
	_, err := Locate(filepath.Join(t.TempDir(), "nope"), Options{Extensions: []string{".py"}})
	require.Error(t, err)
	assert.Equal(t, errors.FileAccessErrorCode, errors.CodeOf(err))
}

func TestLocate_RootMustBeDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"app.py": "x = 1"})

	_, err := Locate(filepath.Join(root, "app.py"), Options{Extensions: []string{".py"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestLocate_CustomIgnoreSet(t *testing.T) {
	root := writeTree(t, map[string]string{
		"vendor/lib.py":  "x = 1",
		"generated/g.py": "x = 1",
	})

	result, err := Locate(root, Options{Extensions: []string{".py"}, IgnoredDirs: []string{"generated"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor/lib.py"}, result.Paths())
}
