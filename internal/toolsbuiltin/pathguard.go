// Package toolsbuiltin provides the concrete direct tools and programmatic
// executors the runtime ships with: read_file, run_script, get_context,
// list_paths, edit_file, plus the shell:run and git:status callbacks the
// Task System's RegisterBuiltinProgrammaticExecutors expects.
package toolsbuiltin

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolveWithinRoot resolves requested against root and rejects any result
// that would escape it — via an absolute path, a `..` traversal, or (when
// the target exists) a symlink pointing outside root. Direct tools never
// touch the filesystem outside the sandbox a session was configured with.
func resolveWithinRoot(root, requested string) (string, error) {
	if filepath.IsAbs(requested) {
		return "", fmt.Errorf("toolsbuiltin: absolute path %q not allowed, paths must be relative to the sandbox root", requested)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("toolsbuiltin: resolve sandbox root: %w", err)
	}
	joined := filepath.Join(root, requested)
	cleaned := filepath.Clean(joined)

	if !pathWithinBase(root, cleaned) {
		return "", fmt.Errorf("toolsbuiltin: path %q escapes sandbox root %q", requested, root)
	}

	if resolved, err := filepath.EvalSymlinks(cleaned); err == nil {
		if !pathWithinBase(root, resolved) {
			return "", fmt.Errorf("toolsbuiltin: path %q resolves outside sandbox root %q via symlink", requested, root)
		}
		return resolved, nil
	}
	// File may not exist yet (e.g. edit_file creating a new file); the
	// cleaned, non-symlinked path is still within root.
	return cleaned, nil
}

func pathWithinBase(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
