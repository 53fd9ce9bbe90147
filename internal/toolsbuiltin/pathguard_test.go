package toolsbuiltin

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveWithinRootAllowsNestedPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeFile(t, filepath.Join(root, "a", "b.txt"), "hi"))

	resolved, err := resolveWithinRoot(root, "a/b.txt")
	require.NoError(t, err)
	require.True(t, pathWithinBase(root, resolved))
}

func TestResolveWithinRootRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	_, err := resolveWithinRoot(root, "../escape.txt")
	require.Error(t, err)
}

func TestResolveWithinRootRejectsAbsoluteOutsidePath(t *testing.T) {
	root := t.TempDir()
	_, err := resolveWithinRoot(root, filepath.Dir(root))
	require.Error(t, err)
}
