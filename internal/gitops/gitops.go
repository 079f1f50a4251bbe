// Package gitops fetches model projects published as git repositories.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CheckRef rejects repository URLs and tags that git could read as options
// or that would escape the clone directory.
func CheckRef(repo, tag string) error {
	if strings.TrimSpace(repo) == "" {
		return fmt.Errorf("empty repository")
	}
	if strings.HasPrefix(repo, "-") {
		return fmt.Errorf("invalid repository %q", repo)
	}
	if tag == "" || strings.HasPrefix(tag, "-") || strings.ContainsAny(tag, " \t\n~^:?*[\\") ||
		strings.Contains(tag, "..") || strings.HasPrefix(tag, "/") || strings.HasSuffix(tag, "/") {
		return fmt.Errorf("invalid tag %q", tag)
	}
	return nil
}

// CloneAndCheckout shallow-clones repo at tag into dest. An existing clone
// at dest is reused.
func CloneAndCheckout(ctx context.Context, repo, tag, dest string) error {
	if err := CheckRef(repo, tag); err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	cmd := exec.CommandContext(ctx, "git", "clone", "--branch", tag, "--depth", "1", "--", repo, dest)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone: %s: %w", out, err)
	}
	return nil
}

// Revision returns the commit checked out in repoDir.
func Revision(repoDir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
