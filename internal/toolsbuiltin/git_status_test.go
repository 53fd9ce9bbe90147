package toolsbuiltin

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGitStatusReportsUntrackedFile(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repo := t.TempDir()
	require.NoError(t, exec.Command("git", "init", repo).Run())
	require.NoError(t, writeFile(t, filepath.Join(repo, "untracked.txt"), "x"))

	out, err := GitStatus(context.Background(), repo)
	require.NoError(t, err)
	require.Contains(t, out, "untracked.txt")
}

func TestGitStatusRejectsNonRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	_, err := GitStatus(context.Background(), t.TempDir())
	require.Error(t, err)
}
