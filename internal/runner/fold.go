package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/docker"
	"github.com/proteingym/pg2-benchmark/internal/metric"
	"github.com/proteingym/pg2-benchmark/internal/result"
)

// Container mount points seen by model adapters.
const (
	DataMount   = "/data"
	ModelMount  = "/model"
	OutputMount = "/output"
)

// ContainerRunner runs a container; docker.RunContainer in production.
type ContainerRunner func(ctx context.Context, opts *docker.RunOpts) (*docker.RunResult, error)

type FoldOpts struct {
	Dataset *config.Dataset
	Model   *config.Model
	// ModelDir is the resolved model project directory.
	ModelDir string
	Fold     int
	Folds    int
	RunDir   string
	Metrics  []string

	Calculator *metric.Calculator
	Run        ContainerRunner
	Logger     *slog.Logger
}

func ExitReasonFromCode(code int, timedOut bool) string {
	if timedOut {
		return "timeout"
	}
	switch code {
	case 0:
		return "completed"
	case 2:
		return "gave_up"
	default:
		return "crashed"
	}
}

// FoldEnv is the environment handed to a model adapter for one fold.
// dataFile names the dataset file inside DataMount; empty when the dataset
// is a directory.
func FoldEnv(opts *FoldOpts, dataFile string) map[string]string {
	env := map[string]string{
		"FOLD":         strconv.Itoa(opts.Fold),
		"N_FOLDS":      strconv.Itoa(opts.Folds),
		"TARGETS":      strings.Join(opts.Dataset.Targets, ","),
		"DATASET":      opts.Dataset.Name,
		"DATASET_PATH": path.Join(DataMount, dataFile),
		"MODEL":        opts.Model.Name,
		"OUTPUT_DIR":   OutputMount,
	}
	for k, v := range opts.Model.Env {
		env[k] = v
	}
	return env
}

// RunFold runs the model adapter container for one fold, scores every
// prediction file it wrote and records the fold meta.
func RunFold(ctx context.Context, opts *FoldOpts) (*result.FoldMeta, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("dataset", opts.Dataset.Name, "model", opts.Model.Name, "fold", opts.Fold)
	run := opts.Run
	if run == nil {
		run = docker.RunContainer
	}
	calc := opts.Calculator
	if calc == nil {
		calc = metric.NewCalculator(log)
	}

	foldName := result.FoldDirName(opts.Dataset.Name, opts.Model.Name, opts.Fold)
	foldDir := result.FoldDir(opts.RunDir, opts.Dataset.Name, opts.Model.Name, opts.Fold)
	predDir := filepath.Join(result.PredictionsDir(opts.RunDir), foldName)
	metricDir := filepath.Join(result.MetricsDir(opts.RunDir), foldName)
	for _, dir := range []string{foldDir, predDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating fold dir: %w", err)
		}
	}

	dataDir, dataFile, err := datasetDir(opts.Dataset.Path)
	if err != nil {
		return nil, err
	}
	modelDir, err := filepath.Abs(opts.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("resolving model dir: %w", err)
	}

	log.Info("running fold", "image", opts.Model.Image)
	res, err := run(ctx, &docker.RunOpts{
		Image:   opts.Model.Image,
		Command: []string{opts.Model.EntryPoint},
		Env:     FoldEnv(opts, dataFile),
		Timeout: time.Duration(opts.Model.TimeLimitMinutes) * time.Minute,
		Mounts: []docker.Mount{
			{Source: dataDir, Target: DataMount, ReadOnly: true},
			{Source: modelDir, Target: ModelMount, ReadOnly: true},
			{Source: predDir, Target: OutputMount},
		},
		UserID: fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	})
	if err != nil {
		return nil, fmt.Errorf("running container: %w", err)
	}
	if len(res.Logs) > 0 {
		if err := os.WriteFile(filepath.Join(foldDir, "container.log"), res.Logs, 0o644); err != nil {
			log.Warn("writing container log", "err", err)
		}
	}

	meta := &result.FoldMeta{
		Dataset:    opts.Dataset.Name,
		Model:      opts.Model.Name,
		Fold:       opts.Fold,
		Backend:    config.BackendLocal,
		DurationS:  int(res.Duration.Seconds()),
		ExitCode:   res.ExitCode,
		ExitReason: ExitReasonFromCode(res.ExitCode, res.TimedOut),
		Scored:     []string{},
	}
	if meta.ExitReason != "completed" {
		log.Warn("model container did not complete", "exit_code", res.ExitCode, "reason", meta.ExitReason)
	}

	cols := metric.Columns{Actual: opts.Dataset.ActualColumn, Predicted: opts.Dataset.PredictColumn}
	var scoreErrs []error
	for _, target := range opts.Dataset.Targets {
		predPath := filepath.Join(predDir, target+".csv")
		if _, err := os.Stat(predPath); err != nil {
			meta.Missing = append(meta.Missing, target)
			continue
		}
		metricPath := filepath.Join(metricDir, target+".json")
		if _, err := calc.Evaluate(predPath, metricPath, opts.Metrics, cols); err != nil {
			log.Error("scoring predictions", "target", target, "err", err)
			meta.Missing = append(meta.Missing, target)
			scoreErrs = append(scoreErrs, err)
			continue
		}
		meta.Scored = append(meta.Scored, target)
	}
	if len(meta.Missing) > 0 {
		log.Warn("targets without metrics", "targets", meta.Missing)
	}

	if err := result.WriteFoldMeta(foldDir, meta); err != nil {
		return nil, fmt.Errorf("writing meta: %w", err)
	}
	return meta, errors.Join(scoreErrs...)
}

// datasetDir returns the host directory mounted at DataMount and the dataset
// file name within it. A dataset that is a directory is mounted whole.
func datasetDir(p string) (dir, file string, err error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", "", fmt.Errorf("resolving dataset path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("dataset %s: %w", p, err)
	}
	if info.IsDir() {
		return abs, "", nil
	}
	return filepath.Dir(abs), filepath.Base(abs), nil
}
