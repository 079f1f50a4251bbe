package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	GameSupervised = "supervised"
	GameZeroShot   = "zero_shot"

	BackendLocal = "local"
	BackendAWS   = "aws"
)

type Config struct {
	Game     string    `yaml:"game"`
	Backend  string    `yaml:"backend"`
	Folds    int       `yaml:"folds"`
	Parallel int       `yaml:"parallel"`
	Metrics  []string  `yaml:"metrics,omitempty"`
	Datasets []Dataset `yaml:"datasets"`
	Models   []Model   `yaml:"models"`
	Results  Results   `yaml:"results"`
	AWS      AWS       `yaml:"aws,omitempty"`
}

type Dataset struct {
	Name          string   `yaml:"name"`
	Path          string   `yaml:"path"`
	Targets       []string `yaml:"targets"`
	ActualColumn  string   `yaml:"actual_column,omitempty"`
	PredictColumn string   `yaml:"predict_column,omitempty"`
}

type Model struct {
	Name             string            `yaml:"name"`
	Path             string            `yaml:"path,omitempty"`
	Image            string            `yaml:"image"`
	Repo             string            `yaml:"repo,omitempty"`
	Tag              string            `yaml:"tag,omitempty"`
	EntryPoint       string            `yaml:"entry_point"`
	Env              map[string]string `yaml:"env,omitempty"`
	TimeLimitMinutes int               `yaml:"time_limit_minutes"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type AWS struct {
	Region               string `yaml:"region"`
	RoleName             string `yaml:"role_name"`
	ECRRepositoryURI     string `yaml:"ecr_repository_uri"`
	S3TrainingDataPrefix string `yaml:"s3_training_data_prefix"`
	S3OutputPrefix       string `yaml:"s3_output_prefix"`
	InstanceType         string `yaml:"instance_type"`
	VolumeSizeGB         int64  `yaml:"volume_size_gb"`
	PollIntervalSeconds  int    `yaml:"poll_interval_seconds"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	PricingFile          string `yaml:"pricing_file,omitempty"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a benchmark config, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Warnings lists problems that do not stop a run.
func (c *Config) Warnings() []string {
	var out []string
	for _, m := range c.Models {
		if strings.Contains(m.Name, "_") {
			out = append(out, fmt.Sprintf("model %q contains '_': aggregated results will attribute %q as the model", m.Name, m.Name[strings.LastIndex(m.Name, "_")+1:]))
		}
	}
	// Fold files are named <dataset>_<model>_fold<N>, so two pairs that join
	// to the same prefix share their fold files.
	seen := map[string][2]string{}
	for _, d := range c.Datasets {
		for _, m := range c.Models {
			key := d.Name + "_" + m.Name
			if prev, ok := seen[key]; ok {
				out = append(out, fmt.Sprintf("dataset %q with model %q collides with dataset %q with model %q: both write %s_fold* files",
					d.Name, m.Name, prev[0], prev[1], key))
				continue
			}
			seen[key] = [2]string{d.Name, m.Name}
		}
	}
	return out
}

func (c *Config) Dataset(name string) (*Dataset, bool) {
	for i := range c.Datasets {
		if c.Datasets[i].Name == name {
			return &c.Datasets[i], true
		}
	}
	return nil, false
}

func (c *Config) Model(name string) (*Model, bool) {
	for i := range c.Models {
		if c.Models[i].Name == name {
			return &c.Models[i], true
		}
	}
	return nil, false
}

func validate(cfg *Config) error {
	if cfg.Game == "" {
		cfg.Game = GameSupervised
	}
	if cfg.Game != GameSupervised && cfg.Game != GameZeroShot {
		return fmt.Errorf("game must be %s or %s, got %q", GameSupervised, GameZeroShot, cfg.Game)
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendLocal
	}
	if cfg.Backend != BackendLocal && cfg.Backend != BackendAWS {
		return fmt.Errorf("backend must be %s or %s, got %q", BackendLocal, BackendAWS, cfg.Backend)
	}
	if cfg.Folds == 0 {
		cfg.Folds = 5
	}
	if cfg.Folds < 1 {
		return fmt.Errorf("folds must be at least 1")
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}

	if len(cfg.Datasets) == 0 {
		return fmt.Errorf("no datasets defined")
	}
	seen := map[string]bool{}
	for i := range cfg.Datasets {
		d := &cfg.Datasets[i]
		if d.Name == "" {
			return fmt.Errorf("dataset %d: name is required", i)
		}
		if strings.ContainsAny(d.Name, `/\`) {
			return fmt.Errorf("dataset %q: name must not contain path separators", d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("dataset %q: defined twice", d.Name)
		}
		seen[d.Name] = true
		if d.Path == "" {
			return fmt.Errorf("dataset %q: path is required", d.Name)
		}
		if len(d.Targets) == 0 {
			return fmt.Errorf("dataset %q: at least one target is required", d.Name)
		}
	}

	if len(cfg.Models) == 0 {
		return fmt.Errorf("no models defined")
	}
	seen = map[string]bool{}
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if m.Name == "" {
			return fmt.Errorf("model %d: name is required", i)
		}
		if strings.ContainsAny(m.Name, `/\`) {
			return fmt.Errorf("model %q: name must not contain path separators", m.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("model %q: defined twice", m.Name)
		}
		seen[m.Name] = true
		if m.Path == "" && m.Repo == "" {
			return fmt.Errorf("model %q: path or repo is required", m.Name)
		}
		if m.Repo != "" && m.Tag == "" {
			return fmt.Errorf("model %q: tag is required with repo", m.Name)
		}
		if m.Image == "" {
			m.Image = m.Name + ":latest"
		}
		if m.EntryPoint == "" {
			m.EntryPoint = "train"
			if cfg.Game == GameZeroShot {
				m.EntryPoint = "predict"
			}
		}
		if m.TimeLimitMinutes == 0 {
			m.TimeLimitMinutes = 30
		}
	}

	if cfg.Backend == BackendAWS {
		return validateAWS(&cfg.AWS)
	}
	return nil
}

func validateAWS(a *AWS) error {
	required := []struct{ key, value string }{
		{"region", a.Region},
		{"role_name", a.RoleName},
		{"ecr_repository_uri", a.ECRRepositoryURI},
		{"s3_training_data_prefix", a.S3TrainingDataPrefix},
		{"s3_output_prefix", a.S3OutputPrefix},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("aws.%s is required for the aws backend", r.key)
		}
	}
	if a.InstanceType == "" {
		a.InstanceType = "ml.m5.large"
	}
	if a.VolumeSizeGB == 0 {
		a.VolumeSizeGB = 30
	}
	if a.PollIntervalSeconds == 0 {
		a.PollIntervalSeconds = 30
	}
	if a.TimeoutSeconds == 0 {
		a.TimeoutSeconds = 3600
	}
	return nil
}
