package toolsbuiltin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// GitStatus runs `git status --porcelain` in repoPath. Its shape is the
// callback tasksystem.RegisterBuiltinProgrammaticExecutors expects for
// git:status.
func GitStatus(ctx context.Context, repoPath string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = repoPath

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git_status: %w: %s", err, errOut.String())
	}
	return out.String(), nil
}
