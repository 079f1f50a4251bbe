package gitops_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/proteingym/pg2-benchmark/internal/gitops"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func createTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cmds := [][]string{
		{"git", "init"},
		{"git", "config", "user.email", "test@test.com"},
		{"git", "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		c := exec.Command(args[0], args[1:]...)
		c.Dir = dir
		if out, err := c.CombinedOutput(); err != nil {
			t.Fatalf("%v: %s", err, out)
		}
	}
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("---\nname: pls\n---\n"), 0o644)
	for _, args := range [][]string{
		{"git", "add", "."},
		{"git", "commit", "-m", "initial"},
		{"git", "tag", "v1"},
	} {
		c := exec.Command(args[0], args[1:]...)
		c.Dir = dir
		if out, err := c.CombinedOutput(); err != nil {
			t.Fatalf("%v: %s", err, out)
		}
	}
	return dir
}

func TestCloneAndCheckout(t *testing.T) {
	requireGit(t)
	repo := createTestRepo(t)
	dest := filepath.Join(t.TempDir(), "models", "pls", "v1")
	err := gitops.CloneAndCheckout(context.Background(), repo, "v1", dest)
	if err != nil {
		t.Fatalf("CloneAndCheckout: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dest, "README.md"))
	if err != nil {
		t.Fatalf("reading cloned file: %v", err)
	}
	if string(content) != "---\nname: pls\n---\n" {
		t.Errorf("content: got %q", content)
	}

	// A second call reuses the clone.
	if err := gitops.CloneAndCheckout(context.Background(), repo, "v1", dest); err != nil {
		t.Fatalf("second CloneAndCheckout: %v", err)
	}
}

func TestRevision(t *testing.T) {
	requireGit(t)
	repo := createTestRepo(t)
	dest := t.TempDir()
	if err := gitops.CloneAndCheckout(context.Background(), repo, "v1", dest); err != nil {
		t.Fatalf("CloneAndCheckout: %v", err)
	}
	rev, err := gitops.Revision(dest)
	if err != nil {
		t.Fatalf("Revision: %v", err)
	}
	if len(rev) != 40 {
		t.Errorf("revision: got %q, want a full commit hash", rev)
	}
	if _, err := gitops.Revision(t.TempDir()); err == nil {
		t.Error("expected error outside a repository")
	}
}

func TestCloneRejectsOptionLikeRepo(t *testing.T) {
	err := gitops.CloneAndCheckout(context.Background(), "--upload-pack=evil", "v1", t.TempDir())
	if err == nil {
		t.Fatal("expected error for option-like repo")
	}
}

func TestCloneRejectsInvalidTag(t *testing.T) {
	for _, tag := range []string{"--option", "", " spaces", "../escape", "v1/", "a:b"} {
		err := gitops.CloneAndCheckout(context.Background(), "/tmp/repo", tag, t.TempDir())
		if err == nil {
			t.Errorf("expected error for tag %q", tag)
		}
	}
}

func TestCheckRefAcceptsReleaseTags(t *testing.T) {
	for _, tag := range []string{"v1", "v0.3.0", "release/2025-01", "main"} {
		if err := gitops.CheckRef("https://github.com/proteingym/pls.git", tag); err != nil {
			t.Errorf("tag %q: %v", tag, err)
		}
	}
}
