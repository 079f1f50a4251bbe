// Package sagemaker runs benchmark folds as SageMaker training jobs.
package sagemaker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
	"github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/sagemaker/sagemakeriface"
)

// MaxRuntime caps every training job.
const MaxRuntime = 24 * time.Hour

// StatusTimeout is reported when monitoring gives up on a running job.
const StatusTimeout = "Timeout"

type Client struct {
	SageMaker sagemakeriface.SageMakerAPI
	IAM       iamiface.IAMAPI
	Logger    *slog.Logger

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client for region using the default credential chain.
func New(region string, logger *slog.Logger) (*Client, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		SageMaker: sagemaker.New(sess),
		IAM:       iam.New(sess),
		Logger:    logger,
	}, nil
}

// JobSpec describes one dataset x model training job.
type JobSpec struct {
	ModelName            string
	RoleName             string
	ECRRepositoryURI     string
	S3TrainingDataPrefix string
	S3OutputPrefix       string
	InstanceType         string
	VolumeSizeGB         int64
	DatasetPrefix        string
	ModelPrefix          string
}

func (s *JobSpec) validate() error {
	required := []struct{ key, value string }{
		{"model name", s.ModelName},
		{"role name", s.RoleName},
		{"ecr repository uri", s.ECRRepositoryURI},
		{"s3 training data prefix", s.S3TrainingDataPrefix},
		{"s3 output prefix", s.S3OutputPrefix},
		{"instance type", s.InstanceType},
		{"dataset prefix", s.DatasetPrefix},
		{"model prefix", s.ModelPrefix},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("training job %s is required", r.key)
		}
	}
	if s.VolumeSizeGB < 1 {
		return fmt.Errorf("training job volume size must be positive, got %d", s.VolumeSizeGB)
	}
	return nil
}

// JobName is the training job name for model started at t.
func JobName(model string, t time.Time) string {
	return model + "-" + t.Format("20060102-150405")
}

// Input builds the CreateTrainingJob request for spec.
func (s *JobSpec) Input(jobName, roleARN string) *sagemaker.CreateTrainingJobInput {
	return &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(jobName),
		RoleArn:         aws.String(roleARN),
		AlgorithmSpecification: &sagemaker.AlgorithmSpecification{
			TrainingImage:     aws.String(s.ECRRepositoryURI),
			TrainingInputMode: aws.String(sagemaker.TrainingInputModeFile),
		},
		ResourceConfig: &sagemaker.ResourceConfig{
			InstanceCount:  aws.Int64(1),
			InstanceType:   aws.String(s.InstanceType),
			VolumeSizeInGB: aws.Int64(s.VolumeSizeGB),
		},
		OutputDataConfig: &sagemaker.OutputDataConfig{
			S3OutputPath: aws.String("s3://" + s.S3OutputPrefix),
		},
		StoppingCondition: &sagemaker.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int64(int64(MaxRuntime / time.Second)),
		},
		InputDataConfig: []*sagemaker.Channel{
			s3Channel("training", fmt.Sprintf("s3://%s/datasets/%s", s.S3TrainingDataPrefix, s.DatasetPrefix)),
			s3Channel("model_card", fmt.Sprintf("s3://%s/models/%s", s.S3TrainingDataPrefix, s.ModelPrefix)),
		},
	}
}

func s3Channel(name, uri string) *sagemaker.Channel {
	return &sagemaker.Channel{
		ChannelName: aws.String(name),
		DataSource: &sagemaker.DataSource{
			S3DataSource: &sagemaker.S3DataSource{
				S3DataType:             aws.String(sagemaker.S3DataTypeS3prefix),
				S3Uri:                  aws.String(uri),
				S3DataDistributionType: aws.String(sagemaker.S3DataDistributionFullyReplicated),
			},
		},
	}
}

// CreateTrainingJob looks up the execution role and starts a training job,
// returning its name.
func (c *Client) CreateTrainingJob(ctx context.Context, spec *JobSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	role, err := c.IAM.GetRoleWithContext(ctx, &iam.GetRoleInput{RoleName: aws.String(spec.RoleName)})
	if err != nil {
		return "", fmt.Errorf("looking up role %s: %w", spec.RoleName, err)
	}
	if role.Role == nil || role.Role.Arn == nil {
		return "", fmt.Errorf("role %s has no ARN", spec.RoleName)
	}

	name := JobName(spec.ModelName, c.now())
	if _, err := c.SageMaker.CreateTrainingJobWithContext(ctx, spec.Input(name, *role.Role.Arn)); err != nil {
		return "", fmt.Errorf("creating training job %s: %w", name, err)
	}
	c.logger().Info("created training job", "job", name, "model", spec.ModelName, "dataset", spec.DatasetPrefix)
	return name, nil
}

// Outcome is the final state of a monitored training job.
type Outcome struct {
	JobName         string `json:"job_name"`
	Status          string `json:"status"`
	FailureReason   string `json:"failure_reason,omitempty"`
	ModelArtifacts  string `json:"model_artifacts,omitempty"`
	TrainingSeconds int64  `json:"training_time,omitempty"`
	BillableSeconds int64  `json:"billable_time,omitempty"`
}

// Completed reports whether the job finished successfully.
func (o *Outcome) Completed() bool {
	return o.Status == sagemaker.TrainingJobStatusCompleted
}

// Monitor polls jobName every poll until it completes, fails or stops, or
// until timeout has elapsed while it is still running.
func (c *Client) Monitor(ctx context.Context, jobName string, poll, timeout time.Duration) (*Outcome, error) {
	start := c.now()
	log := c.logger().With("job", jobName)
	log.Info("monitoring training job", "poll", poll, "timeout", timeout)

	for {
		resp, err := c.SageMaker.DescribeTrainingJobWithContext(ctx, &sagemaker.DescribeTrainingJobInput{
			TrainingJobName: aws.String(jobName),
		})
		if err != nil {
			return nil, fmt.Errorf("describing training job %s: %w", jobName, err)
		}
		status := aws.StringValue(resp.TrainingJobStatus)
		elapsed := c.now().Sub(start)
		log.Debug("training job status", "status", status, "elapsed", elapsed.Round(time.Second))

		out := &Outcome{JobName: jobName, Status: status}
		switch status {
		case sagemaker.TrainingJobStatusCompleted:
			out.TrainingSeconds = aws.Int64Value(resp.TrainingTimeInSeconds)
			out.BillableSeconds = aws.Int64Value(resp.BillableTimeInSeconds)
			if resp.ModelArtifacts != nil {
				out.ModelArtifacts = aws.StringValue(resp.ModelArtifacts.S3ModelArtifacts)
			}
			log.Info("training job completed", "billable_seconds", out.BillableSeconds)
			return out, nil
		case sagemaker.TrainingJobStatusFailed:
			out.FailureReason = aws.StringValue(resp.FailureReason)
			if out.FailureReason == "" {
				out.FailureReason = "Unknown"
			}
			out.BillableSeconds = aws.Int64Value(resp.BillableTimeInSeconds)
			log.Error("training job failed", "reason", out.FailureReason)
			return out, nil
		case sagemaker.TrainingJobStatusStopped:
			out.BillableSeconds = aws.Int64Value(resp.BillableTimeInSeconds)
			log.Warn("training job was stopped")
			return out, nil
		case sagemaker.TrainingJobStatusInProgress, sagemaker.TrainingJobStatusStopping:
			if elapsed >= timeout {
				log.Warn("timed out waiting for training job", "timeout", timeout)
				out.Status = StatusTimeout
				return out, nil
			}
		default:
			log.Warn("unexpected training job status", "status", status)
		}

		if err := c.sleep(ctx, poll); err != nil {
			return nil, err
		}
	}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
