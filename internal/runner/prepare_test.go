package runner_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/runner"
)

type buildCall struct {
	dir, tag string
}

func newPreparer(cache string, builds *[]buildCall, clones *[]string) *runner.Preparer {
	return &runner.Preparer{
		CacheDir: cache,
		Clone: func(_ context.Context, repo, tag, dest string) error {
			*clones = append(*clones, repo+"@"+tag)
			if err := os.MkdirAll(filepath.Join(dest, "adapter"), 0o755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dest, "adapter", "Dockerfile"), []byte("FROM python:3.12\n"), 0o644)
		},
		Build: func(_ context.Context, dir, tag string, _ map[string]string, _ io.Writer) error {
			*builds = append(*builds, buildCall{dir, tag})
			return nil
		},
	}
}

func TestPrepareLocalModel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM python:3.12\n"), 0o644))
	var builds []buildCall
	var clones []string
	p := newPreparer(t.TempDir(), &builds, &clones)

	got, err := p.Prepare(context.Background(), &config.Model{Name: "pls", Path: dir, Image: "pls:latest"})
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.Equal(t, []buildCall{{dir, "pls:latest"}}, builds)
	assert.Empty(t, clones)
}

func TestPrepareWithoutDockerfileSkipsBuild(t *testing.T) {
	dir := t.TempDir()
	var builds []buildCall
	var clones []string
	p := newPreparer(t.TempDir(), &builds, &clones)

	_, err := p.Prepare(context.Background(), &config.Model{Name: "pls", Path: dir, Image: "ghcr.io/x/pls:1"})
	require.NoError(t, err)
	assert.Empty(t, builds)
}

func TestPrepareRepoModel(t *testing.T) {
	cache := t.TempDir()
	var builds []buildCall
	var clones []string
	p := newPreparer(cache, &builds, &clones)

	m := &config.Model{Name: "esm", Repo: "https://github.com/proteingym/esm.git", Tag: "v0.3.0", Path: "adapter", Image: "esm:latest"}
	got, err := p.Prepare(context.Background(), m)
	require.NoError(t, err)
	want := filepath.Join(cache, "models", "esm", "v0.3.0", "adapter")
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"https://github.com/proteingym/esm.git@v0.3.0"}, clones)
	assert.Equal(t, []buildCall{{want, "esm:latest"}}, builds)
}
