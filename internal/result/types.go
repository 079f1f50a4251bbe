package result

// FoldMeta records how one dataset x model x fold job went.
type FoldMeta struct {
	Dataset    string   `json:"dataset"`
	Model      string   `json:"model"`
	Fold       int      `json:"fold"`
	Backend    string   `json:"backend"`
	DurationS  int      `json:"duration_s"`
	ExitCode   int      `json:"exit_code"`
	ExitReason string   `json:"exit_reason"`
	Scored     []string `json:"scored_targets"`
	Missing    []string `json:"missing_targets,omitempty"`
}

// JobMeta records a remote training job.
type JobMeta struct {
	Dataset         string  `json:"dataset"`
	Model           string  `json:"model"`
	JobName         string  `json:"job_name"`
	Status          string  `json:"status"`
	FailureReason   string  `json:"failure_reason,omitempty"`
	InstanceType    string  `json:"instance_type"`
	BillableSeconds int64   `json:"billable_seconds"`
	CostUSD         float64 `json:"cost_usd"`
	ModelArtifacts  string  `json:"model_artifacts,omitempty"`
}
