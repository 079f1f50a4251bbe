package selection_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/selection"
)

func TestParse(t *testing.T) {
	tests := []struct {
		sel  string
		n    int
		want []int
	}{
		{sel: "all", n: 3, want: []int{0, 1, 2}},
		{sel: "ALL", n: 2, want: []int{0, 1}},
		{sel: "1,3", n: 3, want: []int{0, 2}},
		{sel: " 2 , 1 ", n: 3, want: []int{1, 0}},
		{sel: "2-4", n: 5, want: []int{1, 2, 3}},
		{sel: "1,1,2", n: 2, want: []int{0, 1}},
		{sel: "1,,2", n: 2, want: []int{0, 1}},
		{sel: "", n: 3, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			got, err := selection.Parse(tt.sel, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, sel := range []string{"0", "4", "x", "3-1", "1-z", "-1"} {
		t.Run(sel, func(t *testing.T) {
			_, err := selection.Parse(sel, 3)
			assert.Error(t, err)
		})
	}
}

func TestLoadEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datasets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"name": "charge_ladder", "path": "datasets/charge_ladder/dataset.csv", "targets": ["fitness", "binding"]},
  {"name": "neime", "path": "datasets/neime/dataset.csv"}
]`), 0o644))

	entries, err := selection.LoadEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "charge_ladder", entries[0].Name)
	assert.Equal(t, []string{"fitness", "binding"}, entries[0].Targets)
	assert.Empty(t, entries[1].Targets)

	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "x"}]`), 0o644))
	_, err = selection.LoadEntries(path)
	assert.ErrorContains(t, err, "needs a name and a path")

	_, err = selection.LoadEntries(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestRenderLocal(t *testing.T) {
	dir := t.TempDir()
	modelDir := filepath.Join(dir, "models", "pls")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	card := filepath.Join(modelDir, "README.md")
	require.NoError(t, os.WriteFile(card, []byte("---\nname: pls\n---\n"), 0o644))

	datasets := []selection.Entry{
		{Name: "charge_ladder", Path: filepath.Join(dir, "charge_ladder.csv"), Targets: []string{"binding"}},
		{Name: "neime", Path: filepath.Join(dir, "neime.csv")},
	}
	models := []selection.Entry{
		{Name: "pls", Path: card},
		{Name: "esm", Path: filepath.Join(dir, "models", "esm")},
	}

	cfg, err := selection.Render(config.GameSupervised, selection.EnvLocal, datasets, models)
	require.NoError(t, err)
	assert.Equal(t, config.BackendLocal, cfg.Backend)
	assert.Equal(t, 5, cfg.Folds)
	require.Len(t, cfg.Datasets, 2)
	assert.Equal(t, []string{"binding"}, cfg.Datasets[0].Targets)
	assert.Equal(t, []string{selection.DefaultTarget}, cfg.Datasets[1].Targets)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, modelDir, cfg.Models[0].Path)
	assert.Equal(t, "pls:latest", cfg.Models[0].Image)
	assert.Equal(t, filepath.Join(dir, "models", "esm"), cfg.Models[1].Path)
}

func TestRenderAWS(t *testing.T) {
	cfg, err := selection.Render(config.GameZeroShot, selection.EnvAWS,
		[]selection.Entry{{Name: "d", Path: "d.csv"}},
		[]selection.Entry{{Name: "m", Path: "models/m"}})
	require.NoError(t, err)
	assert.Equal(t, config.BackendAWS, cfg.Backend)
	assert.Equal(t, config.GameZeroShot, cfg.Game)
	assert.True(t, filepath.IsAbs(cfg.Datasets[0].Path))
	assert.Empty(t, cfg.AWS.Region)
}

func TestRenderRejectsUnknown(t *testing.T) {
	_, err := selection.Render("fewshot", selection.EnvLocal, nil, nil)
	assert.ErrorContains(t, err, "unknown game")
	_, err = selection.Render(config.GameSupervised, "gcp", nil, nil)
	assert.ErrorContains(t, err, "unknown env")
}

func TestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, err := selection.Render(config.GameSupervised, selection.EnvLocal,
		[]selection.Entry{{Name: "d", Path: filepath.Join(dir, "d.csv")}},
		[]selection.Entry{{Name: "m", Path: filepath.Join(dir, "m")}})
	require.NoError(t, err)

	path := filepath.Join(dir, selection.Path(config.GameSupervised, selection.EnvLocal))
	assert.Equal(t, filepath.Join(dir, "benchmark", "supervised", "local", "benchmark.yaml"), path)
	require.NoError(t, selection.Write(path, cfg))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Datasets, loaded.Datasets)
	assert.Equal(t, cfg.Models, loaded.Models)
}
