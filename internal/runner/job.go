package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/proteingym/pg2-benchmark/internal/config"
	"github.com/proteingym/pg2-benchmark/internal/pricing"
	"github.com/proteingym/pg2-benchmark/internal/result"
	"github.com/proteingym/pg2-benchmark/internal/sagemaker"
)

// TrainingClient creates and monitors remote training jobs.
type TrainingClient interface {
	CreateTrainingJob(ctx context.Context, spec *sagemaker.JobSpec) (string, error)
	Monitor(ctx context.Context, jobName string, poll, timeout time.Duration) (*sagemaker.Outcome, error)
}

type JobOpts struct {
	Dataset *config.Dataset
	Model   *config.Model
	AWS     *config.AWS
	Pricing *pricing.Table
	RunDir  string
	Client  TrainingClient
	Logger  *slog.Logger
}

// TrainingImage is the image a model trains with: the model's tag in the
// configured ECR repository.
func TrainingImage(a *config.AWS, m *config.Model) string {
	return a.ECRRepositoryURI + ":" + m.Name
}

// JobSpec builds the training job request for one dataset x model.
func JobSpec(a *config.AWS, d *config.Dataset, m *config.Model) *sagemaker.JobSpec {
	return &sagemaker.JobSpec{
		ModelName:            m.Name,
		RoleName:             a.RoleName,
		ECRRepositoryURI:     TrainingImage(a, m),
		S3TrainingDataPrefix: a.S3TrainingDataPrefix,
		S3OutputPrefix:       a.S3OutputPrefix,
		InstanceType:         a.InstanceType,
		VolumeSizeGB:         a.VolumeSizeGB,
		DatasetPrefix:        d.Name,
		ModelPrefix:          m.Name,
	}
}

// RunJob starts a training job for one dataset x model, waits for it and
// records the outcome with its estimated cost.
func RunJob(ctx context.Context, opts *JobOpts) (*result.JobMeta, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("dataset", opts.Dataset.Name, "model", opts.Model.Name)

	name, err := opts.Client.CreateTrainingJob(ctx, JobSpec(opts.AWS, opts.Dataset, opts.Model))
	if err != nil {
		return nil, err
	}
	poll := time.Duration(opts.AWS.PollIntervalSeconds) * time.Second
	timeout := time.Duration(opts.AWS.TimeoutSeconds) * time.Second
	out, err := opts.Client.Monitor(ctx, name, poll, timeout)
	if err != nil {
		return nil, err
	}

	meta := &result.JobMeta{
		Dataset:         opts.Dataset.Name,
		Model:           opts.Model.Name,
		JobName:         name,
		Status:          out.Status,
		FailureReason:   out.FailureReason,
		InstanceType:    opts.AWS.InstanceType,
		BillableSeconds: out.BillableSeconds,
		CostUSD:         opts.Pricing.Cost(opts.AWS.Region, opts.AWS.InstanceType, out.BillableSeconds),
		ModelArtifacts:  out.ModelArtifacts,
	}
	if err := result.WriteJobMeta(result.JobsDir(opts.RunDir), meta); err != nil {
		return nil, fmt.Errorf("writing job record: %w", err)
	}
	log.Info("training job finished", "job", name, "status", meta.Status, "cost_usd", meta.CostUSD)
	if !out.Completed() {
		return meta, fmt.Errorf("training job %s ended %s", name, out.Status)
	}
	return meta, nil
}
