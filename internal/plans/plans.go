package plans

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"agreementsd/internal/models"
)

//go:embed plans.yaml
var defaultTable []byte

// Plan is one billing tier with its quota limits and provider identifiers.
type Plan struct {
	Name                  string  `yaml:"name"`
	Billing               string  `yaml:"billing"`
	Price                 float64 `yaml:"price"`
	VariantID             int64   `yaml:"variantId"`
	MaxAgreements         int     `yaml:"maxAgreements"`
	MaxSigneePerAgreement int     `yaml:"maxSigneePerAgreement"`
}

// Table maps plan keys ("basic_monthly", ...) to plan descriptors.
type Table struct {
	plans map[string]Plan
}

// Load builds the plan table from path, or from the embedded defaults when
// path is empty.
func Load(path string) (*Table, error) {
	data := defaultTable
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("plans: read table: %w", err)
		}
	}

	var raw map[string]Plan
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("plans: parse table: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("plans: table is empty")
	}

	return &Table{plans: raw}, nil
}

// Key builds the lookup key for a package name and billing interval.
func Key(packageName, billing string) string {
	interval := "monthly"
	if billing == "yearly" {
		interval = "yearly"
	}
	return strings.ToLower(strings.TrimSpace(packageName)) + "_" + interval
}

// Get returns the plan for the given key.
func (t *Table) Get(key string) (Plan, bool) {
	p, ok := t.plans[key]
	return p, ok
}

// ByVariant returns the plan carrying the given billing-provider variant id.
func (t *Table) ByVariant(variantID int64) (Plan, bool) {
	for _, p := range t.plans {
		if p.VariantID == variantID {
			return p, true
		}
	}
	return Plan{}, false
}

// Resolve maps a stored subscription to its plan. It fails closed: a missing
// subscription, a non-active status, or an unknown plan key all yield
// ok=false, and callers must deny gated operations in that case.
func (t *Table) Resolve(sub *models.Subscription) (Plan, bool) {
	if sub == nil || sub.Status != "active" {
		return Plan{}, false
	}
	return t.Get(Key(sub.PackageName, sub.Billing))
}
