package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/docker"
	"github.com/proteingym/pg2-benchmark/internal/runner"
	"github.com/proteingym/pg2-benchmark/internal/sagemaker"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFilterDatasets(t *testing.T) {
	datasets := []config.Dataset{{Name: "charge_ladder"}, {Name: "binding"}, {Name: "neime"}}
	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{"empty filter returns all", "", 3},
		{"exact match", "binding", 1},
		{"no match", "stability", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterDatasets(datasets, tt.filter)
			if len(got) != tt.want {
				t.Errorf("filterDatasets(%q) returned %d, want %d", tt.filter, len(got), tt.want)
			}
		})
	}
}

func TestFilterModels(t *testing.T) {
	models := []config.Model{{Name: "pls"}, {Name: "esm"}}
	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{"empty filter returns all", "", 2},
		{"exact match", "esm", 1},
		{"prefix is not a match", "es", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterModels(models, tt.filter)
			if len(got) != tt.want {
				t.Errorf("filterModels(%q) returned %d, want %d", tt.filter, len(got), tt.want)
			}
		})
	}
}

// writeBenchmark lays out a dataset, a model project and a config in a temp
// dir and returns the config path and results dir.
func writeBenchmark(t *testing.T, backend string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "datasets", "charge_ladder", "dataset.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(data), 0o755))
	require.NoError(t, os.WriteFile(data, []byte("sequence,fitness\nAAA,1\n"), 0o644))
	model := filepath.Join(dir, "models", "pls")
	require.NoError(t, os.MkdirAll(model, 0o755))
	results := filepath.Join(dir, "results")

	cfg := fmt.Sprintf(`game: supervised
backend: %s
folds: 3
parallel: 1
metrics: [spearman]
datasets:
  - name: charge_ladder
    path: %s
    targets: [fitness]
models:
  - name: pls
    path: %s
results:
  dir: %s
aws:
  region: us-east-1
  role_name: SageMakerRole
  ecr_repository_uri: 123.dkr.ecr.us-east-1.amazonaws.com/pg2
  s3_training_data_prefix: bucket/data
  s3_output_prefix: bucket/output
`, backend, data, model, results)
	path := filepath.Join(dir, "benchmark.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, results
}

func TestRunLocalEndToEnd(t *testing.T) {
	cfgPath, results := writeBenchmark(t, config.BackendLocal)
	preds := map[string]string{
		"0": "actual,predicted\n1,1\n2,2\n3,3\n",
		"1": "actual,predicted\n1,1\n2,3\n3,2\n",
		"2": "actual,predicted\n1,1\n2,2\n3,3\n",
	}
	runContainer = func(_ context.Context, opts *docker.RunOpts) (*docker.RunResult, error) {
		for _, m := range opts.Mounts {
			if m.Target == runner.OutputMount {
				p := preds[opts.Env["FOLD"]]
				if err := os.WriteFile(filepath.Join(m.Source, "fitness.csv"), []byte(p), 0o644); err != nil {
					return nil, err
				}
			}
		}
		return &docker.RunResult{Duration: time.Second}, nil
	}
	preparer = &runner.Preparer{
		Build: func(context.Context, string, string, map[string]string, io.Writer) error { return nil },
	}
	t.Cleanup(func() { runContainer, preparer = nil, nil })

	out, err := execute(t, "", "run", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Running pls × charge_ladder (fold 3/3)")
	assert.Contains(t, out, "--- Results ---")
	assert.Contains(t, out, "charge_ladder")

	csv, err := os.ReadFile(filepath.Join(results, "latest", "supervised_metrics.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "supervised,pls,charge_ladder,fitness,")

	for fold := 0; fold < 3; fold++ {
		_, err := os.Stat(filepath.Join(results, "latest", "metrics", fmt.Sprintf("charge_ladder_pls_fold%d", fold), "fitness.json"))
		assert.NoError(t, err)
	}
}

func TestRunLocalCrashedFolds(t *testing.T) {
	cfgPath, _ := writeBenchmark(t, config.BackendLocal)
	runContainer = func(context.Context, *docker.RunOpts) (*docker.RunResult, error) {
		return &docker.RunResult{ExitCode: 1}, nil
	}
	preparer = &runner.Preparer{}
	t.Cleanup(func() { runContainer, preparer = nil, nil })

	out, err := execute(t, "", "run", "--config", cfgPath, "--folds", "2")
	require.NoError(t, err, out)
	assert.Contains(t, out, "crashed")
	assert.Contains(t, out, "No fold directories found for charge_ladder_pls")
}

type fakeTrainer struct{}

func (fakeTrainer) CreateTrainingJob(_ context.Context, spec *sagemaker.JobSpec) (string, error) {
	return spec.ModelName + "-20250101-000000", nil
}

func (fakeTrainer) Monitor(_ context.Context, name string, _, _ time.Duration) (*sagemaker.Outcome, error) {
	return &sagemaker.Outcome{JobName: name, Status: "Completed", BillableSeconds: 1800}, nil
}

func TestRunRemote(t *testing.T) {
	cfgPath, results := writeBenchmark(t, config.BackendAWS)
	trainingClient = fakeTrainer{}
	t.Cleanup(func() { trainingClient = nil })

	out, err := execute(t, "", "run", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "pls-20250101-000000: Completed")
	assert.Contains(t, out, "TOTAL")

	_, err = os.Stat(filepath.Join(results, "latest", "jobs", "pls-20250101-000000.json"))
	assert.NoError(t, err)
}

func TestRunNothingMatches(t *testing.T) {
	cfgPath, _ := writeBenchmark(t, config.BackendLocal)
	_, err := execute(t, "", "run", "--config", cfgPath, "--model", "esm")
	assert.ErrorContains(t, err, "nothing to run")
}
