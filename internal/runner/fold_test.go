package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/docker"
	"github.com/proteingym/pg2-benchmark/internal/metric"
	"github.com/proteingym/pg2-benchmark/internal/result"
	"github.com/proteingym/pg2-benchmark/internal/runner"
)

func TestExitReasonFromCode(t *testing.T) {
	tests := []struct {
		code     int
		timedOut bool
		want     string
	}{
		{0, false, "completed"},
		{1, false, "crashed"},
		{2, false, "gave_up"},
		{124, true, "timeout"},
		{42, false, "crashed"},
	}
	for _, tt := range tests {
		got := runner.ExitReasonFromCode(tt.code, tt.timedOut)
		if got != tt.want {
			t.Errorf("ExitReasonFromCode(%d, %v) = %q, want %q", tt.code, tt.timedOut, got, tt.want)
		}
	}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeContainer writes the given prediction files into the /output mount.
func fakeContainer(t *testing.T, code int, files map[string]string, got **docker.RunOpts) runner.ContainerRunner {
	t.Helper()
	return func(_ context.Context, opts *docker.RunOpts) (*docker.RunResult, error) {
		if got != nil {
			*got = opts
		}
		for _, m := range opts.Mounts {
			if m.Target != runner.OutputMount {
				continue
			}
			for name, content := range files {
				require.NoError(t, os.WriteFile(filepath.Join(m.Source, name), []byte(content), 0o644))
			}
		}
		return &docker.RunResult{ExitCode: code, Duration: 3 * time.Second, Logs: []byte("training done\n")}, nil
	}
}

type fixture struct {
	runDir  string
	dataset *config.Dataset
	model   *config.Model
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	dataPath := filepath.Join(root, "datasets", "charge_ladder", "dataset.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(dataPath), 0o755))
	require.NoError(t, os.WriteFile(dataPath, []byte("sequence,fitness,stability\nAAA,1,2\n"), 0o644))
	modelDir := filepath.Join(root, "models", "pls")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	return &fixture{
		runDir:  filepath.Join(root, "run"),
		dataset: &config.Dataset{Name: "charge_ladder", Path: dataPath, Targets: []string{"fitness", "stability"}},
		model: &config.Model{
			Name: "pls", Path: modelDir, Image: "pls:latest", EntryPoint: "train",
			Env: map[string]string{"N_COMPONENTS": "4"}, TimeLimitMinutes: 10,
		},
	}
}

func (f *fixture) opts(fold int, run runner.ContainerRunner) *runner.FoldOpts {
	return &runner.FoldOpts{
		Dataset:    f.dataset,
		Model:      f.model,
		ModelDir:   f.model.Path,
		Fold:       fold,
		Folds:      3,
		RunDir:     f.runDir,
		Metrics:    []string{"spearman", "mae"},
		Calculator: metric.NewCalculator(quiet),
		Run:        run,
		Logger:     quiet,
	}
}

func TestRunFoldScoresPredictions(t *testing.T) {
	f := newFixture(t)
	var got *docker.RunOpts
	run := fakeContainer(t, 0, map[string]string{"fitness.csv": "actual,predicted\n1,1\n2,2\n3,3\n"}, &got)

	meta, err := runner.RunFold(context.Background(), f.opts(1, run))
	require.NoError(t, err)
	assert.Equal(t, "completed", meta.ExitReason)
	assert.Equal(t, 3, meta.DurationS)
	assert.Equal(t, []string{"fitness"}, meta.Scored)
	assert.Equal(t, []string{"stability"}, meta.Missing)

	require.NotNil(t, got)
	assert.Equal(t, []string{"train"}, got.Command)
	assert.Equal(t, 10*time.Minute, got.Timeout)
	assert.Equal(t, "1", got.Env["FOLD"])
	assert.Equal(t, "3", got.Env["N_FOLDS"])
	assert.Equal(t, "fitness,stability", got.Env["TARGETS"])
	assert.Equal(t, "/data/dataset.csv", got.Env["DATASET_PATH"])
	assert.Equal(t, "/output", got.Env["OUTPUT_DIR"])
	assert.Equal(t, "4", got.Env["N_COMPONENTS"])

	mounts := map[string]docker.Mount{}
	for _, m := range got.Mounts {
		mounts[m.Target] = m
	}
	assert.Equal(t, filepath.Dir(f.dataset.Path), mounts[runner.DataMount].Source)
	assert.True(t, mounts[runner.DataMount].ReadOnly)
	assert.True(t, mounts[runner.ModelMount].ReadOnly)
	assert.False(t, mounts[runner.OutputMount].ReadOnly)

	data, err := os.ReadFile(filepath.Join(f.runDir, "metrics", "charge_ladder_pls_fold1", "fitness.json"))
	require.NoError(t, err)
	var scores map[string]any
	require.NoError(t, json.Unmarshal(data, &scores))
	assert.Equal(t, 1.0, scores["spearman"])
	assert.Equal(t, 0.0, scores["mae"])

	stored, err := result.ReadFoldMeta(filepath.Join(result.FoldDir(f.runDir, "charge_ladder", "pls", 1), "meta.json"))
	require.NoError(t, err)
	assert.Equal(t, meta, stored)

	logs, err := os.ReadFile(filepath.Join(result.FoldDir(f.runDir, "charge_ladder", "pls", 1), "container.log"))
	require.NoError(t, err)
	assert.Equal(t, "training done\n", string(logs))
}

func TestRunFoldExitReasons(t *testing.T) {
	f := newFixture(t)
	meta, err := runner.RunFold(context.Background(), f.opts(2, fakeContainer(t, 2, nil, nil)))
	require.NoError(t, err)
	assert.Equal(t, "gave_up", meta.ExitReason)
	assert.Empty(t, meta.Scored)
	assert.Equal(t, []string{"fitness", "stability"}, meta.Missing)
}

func TestRunFoldBadPredictions(t *testing.T) {
	f := newFixture(t)
	run := fakeContainer(t, 0, map[string]string{
		"fitness.csv":   "actual,predicted\n1,high\n",
		"stability.csv": "actual,predicted\n1,2\n2,1\n",
	}, nil)
	meta, err := runner.RunFold(context.Background(), f.opts(1, run))
	require.Error(t, err)
	var ferr *metric.InputFormatError
	assert.True(t, errors.As(err, &ferr))
	require.NotNil(t, meta)
	assert.Equal(t, []string{"stability"}, meta.Scored)
	assert.Equal(t, []string{"fitness"}, meta.Missing)
}

func TestRunFoldContainerError(t *testing.T) {
	f := newFixture(t)
	run := func(context.Context, *docker.RunOpts) (*docker.RunResult, error) {
		return nil, errors.New("daemon unavailable")
	}
	_, err := runner.RunFold(context.Background(), f.opts(1, run))
	assert.ErrorContains(t, err, "daemon unavailable")
}

func TestRunFoldMissingDataset(t *testing.T) {
	f := newFixture(t)
	f.dataset.Path = filepath.Join(t.TempDir(), "missing.csv")
	_, err := runner.RunFold(context.Background(), f.opts(1, fakeContainer(t, 0, nil, nil)))
	assert.ErrorContains(t, err, "missing.csv")
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	preds := []string{
		"actual,predicted\n1,1\n2,2\n3,3\n",
		"actual,predicted\n1,3\n2,2\n3,1\n",
		"actual,predicted\n1,1\n2,2\n3,3\n",
	}
	for fold, p := range preds {
		run := fakeContainer(t, 0, map[string]string{"fitness.csv": p}, nil)
		_, err := runner.RunFold(context.Background(), f.opts(fold, run))
		require.NoError(t, err)
	}

	cfg := &config.Config{
		Game:     config.GameSupervised,
		Datasets: []config.Dataset{*f.dataset},
		Models:   []config.Model{*f.model, {Name: "esm"}},
	}
	sum, err := runner.Summarize(afero.NewOsFs(), f.runDir, cfg, quiet)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(f.runDir, "aggregated", "charge_ladder_pls_aggregated.json")}, sum.Aggregated)
	assert.Equal(t, []string{"charge_ladder_esm"}, sum.Empty)
	assert.Equal(t, filepath.Join(f.runDir, "supervised_metrics.csv"), sum.CSVPath)
	assert.Equal(t, 1, sum.Rows)

	csv, err := os.ReadFile(sum.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(csv), "game,model,dataset,target,spearman,stdev\n")
	assert.Contains(t, string(csv), "supervised,pls,charge_ladder,fitness,")

	_, err = os.Stat(filepath.Join(f.runDir, "predictions", "charge_ladder_pls_combined.csv"))
	assert.NoError(t, err)
}

func TestSummarizeNothingScored(t *testing.T) {
	f := newFixture(t)
	cfg := &config.Config{Game: config.GameZeroShot, Datasets: []config.Dataset{*f.dataset}, Models: []config.Model{*f.model}}
	sum, err := runner.Summarize(afero.NewOsFs(), f.runDir, cfg, quiet)
	require.NoError(t, err)
	assert.Empty(t, sum.Aggregated)
	assert.Equal(t, 0, sum.Rows)
}
