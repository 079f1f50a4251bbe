package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/docker"
	"github.com/proteingym/pg2-benchmark/internal/gitops"
)

// Preparer resolves model projects and builds their images. The function
// fields default to the git and docker implementations.
type Preparer struct {
	// CacheDir receives clones of models published as git repositories.
	CacheDir string
	Out      io.Writer

	Clone func(ctx context.Context, repo, tag, dest string) error
	Build func(ctx context.Context, contextDir, tag string, buildArgs map[string]string, out io.Writer) error
}

// ModelDir returns the project directory for m, cloning it first when the
// model comes from a repository.
func (p *Preparer) ModelDir(ctx context.Context, m *config.Model) (string, error) {
	if m.Repo == "" {
		dir, err := filepath.Abs(m.Path)
		if err != nil {
			return "", fmt.Errorf("resolving model %s: %w", m.Name, err)
		}
		return dir, nil
	}
	clone := p.Clone
	if clone == nil {
		clone = gitops.CloneAndCheckout
	}
	dest, err := filepath.Abs(filepath.Join(p.CacheDir, "models", m.Name, m.Tag))
	if err != nil {
		return "", fmt.Errorf("resolving clone dir: %w", err)
	}
	if err := clone(ctx, m.Repo, m.Tag, dest); err != nil {
		return "", fmt.Errorf("fetching model %s: %w", m.Name, err)
	}
	if m.Path != "" {
		dest = filepath.Join(dest, m.Path)
	}
	return dest, nil
}

// Prepare resolves the project of m and builds its image when the project
// has a Dockerfile. Without one the image must already exist.
func (p *Preparer) Prepare(ctx context.Context, m *config.Model) (string, error) {
	dir, err := p.ModelDir(ctx, m)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(dir, "Dockerfile")); err != nil {
		return dir, nil
	}
	build := p.Build
	if build == nil {
		build = docker.BuildImage
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}
	if err := build(ctx, dir, m.Image, nil, out); err != nil {
		return "", err
	}
	return dir, nil
}
