package pricing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/proteingym/pg2-benchmark/internal/pricing"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestLoadPricing(t *testing.T) {
	dir := t.TempDir()
	content := `us-east-1:
  ml.m5.large:
    hourly: 0.115
  ml.p3.2xlarge:
    hourly: 3.825
`
	path := filepath.Join(dir, "pricing.yaml")
	os.WriteFile(path, []byte(content), 0o644)

	table, err := pricing.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cost := table.Cost("us-east-1", "ml.p3.2xlarge", 1800)
	want := 1.9125
	if abs(cost-want) > 0.001 {
		t.Errorf("got %f, want %f", cost, want)
	}
}

func TestLoadFixture(t *testing.T) {
	table, err := pricing.Load("../../testdata/pricing.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := table.Cost("eu-west-1", "ml.m5.large", 3600); abs(got-0.128) > 1e-9 {
		t.Errorf("got %f, want 0.128", got)
	}
}

func TestCostUnknownInstance(t *testing.T) {
	table := &pricing.Table{}
	if cost := table.Cost("us-east-1", "ml.unknown", 1000); cost != 0 {
		t.Errorf("expected 0 for unknown instance, got %f", cost)
	}
	var nilTable *pricing.Table
	if cost := nilTable.Cost("us-east-1", "ml.m5.large", 1000); cost != 0 {
		t.Errorf("expected 0 for nil table, got %f", cost)
	}
}
