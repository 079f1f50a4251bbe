// Package selection turns catalogues of models and datasets into a
// benchmark config for one game and environment.
package selection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/proteingym/pg2-benchmark/internal/config"
)

// Root is the directory generated benchmark configs are written under.
const Root = "benchmark"

// DefaultTarget is used for datasets whose catalogue entry lists no targets.
const DefaultTarget = "fitness"

const (
	EnvLocal = "local"
	EnvAWS   = "aws"
)

// Entry is one item of a models.json or datasets.json catalogue.
type Entry struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Targets []string `json:"targets,omitempty"`
}

func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, e := range entries {
		if e.Name == "" || e.Path == "" {
			return nil, fmt.Errorf("%s: entry %d needs a name and a path", path, i+1)
		}
	}
	return entries, nil
}

// Parse resolves a selection string against n entries and returns 0-based
// indices in the order given. "all" selects everything; otherwise the string
// is a comma-separated list of 1-based indices or ranges such as "2-4".
// Duplicates are dropped. An empty string selects nothing.
func Parse(sel string, n int) ([]int, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return nil, nil
	}
	if strings.EqualFold(sel, "all") {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}

	var idx []int
	seen := map[int]bool{}
	add := func(i int) error {
		if i < 1 || i > n {
			return fmt.Errorf("selection %d out of range 1-%d", i, n)
		}
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i-1)
		}
		return nil
	}
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}
		for i := from; i <= to; i++ {
			if err := add(i); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

// Apply returns the entries at idx.
func Apply(entries []Entry, idx []int) []Entry {
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, entries[i])
	}
	return out
}

// Path is where the config for game and env is written.
func Path(game, env string) string {
	return filepath.Join(Root, game, env, "benchmark.yaml")
}

// Render builds the benchmark config for the selected datasets and models.
// Local configs point at absolute paths and are validated; aws configs name
// the backend and leave the aws section for the user to complete.
func Render(game, env string, datasets, models []Entry) (*config.Config, error) {
	if game != config.GameSupervised && game != config.GameZeroShot {
		return nil, fmt.Errorf("unknown game %q", game)
	}
	cfg := &config.Config{Game: game}
	switch env {
	case EnvLocal:
		cfg.Backend = config.BackendLocal
	case EnvAWS:
		cfg.Backend = config.BackendAWS
	default:
		return nil, fmt.Errorf("unknown env %q", env)
	}

	for _, d := range datasets {
		path, err := filepath.Abs(d.Path)
		if err != nil {
			return nil, fmt.Errorf("resolving dataset %s: %w", d.Name, err)
		}
		targets := d.Targets
		if len(targets) == 0 {
			targets = []string{DefaultTarget}
		}
		cfg.Datasets = append(cfg.Datasets, config.Dataset{Name: d.Name, Path: path, Targets: targets})
	}
	for _, m := range models {
		path, err := modelDir(m.Path)
		if err != nil {
			return nil, fmt.Errorf("resolving model %s: %w", m.Name, err)
		}
		cfg.Models = append(cfg.Models, config.Model{Name: m.Name, Path: path})
	}

	if env == EnvLocal {
		data, err := config.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		return config.Parse(data)
	}
	return cfg, nil
}

// modelDir resolves a catalogue model path to its project directory. A path
// naming a file inside the project (its model card, say) resolves to the
// file's directory.
func modelDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return filepath.Dir(abs), nil
	}
	return abs, nil
}

// Write renders cfg as YAML at path, creating parent directories.
func Write(path string, cfg *config.Config) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
