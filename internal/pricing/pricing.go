package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type InstancePricing struct {
	Hourly float64 `yaml:"hourly"`
}

// Table holds on-demand training instance prices per region.
type Table struct {
	Regions map[string]map[string]InstancePricing
}

func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing file: %w", err)
	}
	var regions map[string]map[string]InstancePricing
	if err := yaml.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("parsing pricing file: %w", err)
	}
	return &Table{Regions: regions}, nil
}

// Cost estimates the price of billableSeconds on one instance. Unknown
// regions or instance types cost 0.
func (t *Table) Cost(region, instanceType string, billableSeconds int64) float64 {
	if t == nil || t.Regions == nil {
		return 0
	}
	instances, ok := t.Regions[region]
	if !ok {
		return 0
	}
	p, ok := instances[instanceType]
	if !ok {
		return 0
	}
	return float64(billableSeconds) / 3600.0 * p.Hourly
}
