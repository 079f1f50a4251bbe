package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/proteingym/pg2-benchmark/internal/sagemaker"
)

var (
	smSpec         sagemaker.JobSpec
	smRegion       string
	smJobName      string
	smPollInterval int
	smTimeout      int
)

func newSageMakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sagemaker",
		Short: "Create and monitor SageMaker training jobs",
	}
	cmd.AddCommand(newSageMakerCreateCmd())
	cmd.AddCommand(newSageMakerMonitorCmd())
	return cmd
}

func newSageMakerCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a training job and print its name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sagemaker.New(smRegion, slog.Default())
			if err != nil {
				return err
			}
			spec := smSpec
			name, err := client.CreateTrainingJob(context.Background(), &spec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&smSpec.ModelName, "model-name", "", "model name")
	f.StringVar(&smRegion, "region-name", "", "AWS region")
	f.StringVar(&smSpec.RoleName, "sagemaker-role-name", "", "SageMaker execution role name")
	f.StringVar(&smSpec.ECRRepositoryURI, "ecr-repository-uri", "", "training image URI")
	f.StringVar(&smSpec.S3TrainingDataPrefix, "s3-training-data-prefix", "", "S3 training data prefix (bucket/path)")
	f.StringVar(&smSpec.S3OutputPrefix, "s3-output-prefix", "", "S3 output prefix (bucket/path)")
	f.StringVar(&smSpec.InstanceType, "instance-type", "ml.m5.large", "training instance type")
	f.Int64Var(&smSpec.VolumeSizeGB, "volume-size", 30, "volume size in GB")
	f.StringVar(&smSpec.DatasetPrefix, "dataset-prefix", "", "dataset prefix under <data prefix>/datasets")
	f.StringVar(&smSpec.ModelPrefix, "model-prefix", "", "model prefix under <data prefix>/models")
	for _, name := range []string{"model-name", "region-name", "sagemaker-role-name", "ecr-repository-uri",
		"s3-training-data-prefix", "s3-output-prefix", "dataset-prefix", "model-prefix"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newSageMakerMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Wait for a training job and print its outcome as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sagemaker.New(smRegion, slog.Default())
			if err != nil {
				return err
			}
			out, err := client.Monitor(context.Background(), smJobName,
				time.Duration(smPollInterval)*time.Second, time.Duration(smTimeout)*time.Second)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			if !out.Completed() {
				return fmt.Errorf("training job %s ended %s", smJobName, out.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&smRegion, "region-name", "", "AWS region")
	cmd.Flags().StringVar(&smJobName, "job-name", "", "training job name")
	cmd.Flags().IntVar(&smPollInterval, "poll-interval", 30, "seconds between status checks")
	cmd.Flags().IntVar(&smTimeout, "timeout", 3600, "seconds to wait before giving up")
	cmd.MarkFlagRequired("region-name")
	cmd.MarkFlagRequired("job-name")
	return cmd
}
