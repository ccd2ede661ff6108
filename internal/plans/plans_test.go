package plans

import (
	"testing"

	"agreementsd/internal/models"
)

func TestKey(t *testing.T) {
	tests := []struct {
		packageName string
		billing     string
		want        string
	}{
		{"basic", "monthly", "basic_monthly"},
		{"Standard", "yearly", "standard_yearly"},
		{" enterprise ", "", "enterprise_monthly"},
		{"basic", "weekly", "basic_monthly"},
	}
	for _, tt := range tests {
		if got := Key(tt.packageName, tt.billing); got != tt.want {
			t.Fatalf("Key(%q, %q) = %q, want %q", tt.packageName, tt.billing, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, key := range []string{
		"basic_monthly", "basic_yearly",
		"standard_monthly", "standard_yearly",
		"enterprise_monthly", "enterprise_yearly",
	} {
		plan, ok := table.Get(key)
		if !ok {
			t.Fatalf("default table is missing %q", key)
		}
		if plan.VariantID == 0 {
			t.Fatalf("%q has no variant id", key)
		}
		if plan.MaxAgreements <= 0 || plan.MaxSigneePerAgreement <= 0 {
			t.Fatalf("%q has no quota limits", key)
		}
	}
}

func TestByVariantIsUnambiguous(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	seen := map[int64]string{}
	for _, key := range []string{
		"basic_monthly", "basic_yearly",
		"standard_monthly", "standard_yearly",
		"enterprise_monthly", "enterprise_yearly",
	} {
		plan, _ := table.Get(key)
		if prev, dup := seen[plan.VariantID]; dup {
			t.Fatalf("variant %d is shared by %q and %q", plan.VariantID, prev, key)
		}
		seen[plan.VariantID] = key

		got, ok := table.ByVariant(plan.VariantID)
		if !ok || got.VariantID != plan.VariantID {
			t.Fatalf("ByVariant(%d) did not round-trip", plan.VariantID)
		}
	}
}

func TestResolveFailsClosed(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		sub    *models.Subscription
		wantOK bool
	}{
		{name: "nil subscription", sub: nil},
		{
			name: "cancelled subscription",
			sub:  &models.Subscription{PackageName: "basic", Billing: "monthly", Status: "cancelled"},
		},
		{
			name: "unknown package",
			sub:  &models.Subscription{PackageName: "platinum", Billing: "monthly", Status: "active"},
		},
		{
			name:   "active subscription",
			sub:    &models.Subscription{PackageName: "standard", Billing: "yearly", Status: "active"},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, ok := table.Resolve(tt.sub)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && plan.Name != "Standard" {
				t.Fatalf("Resolve() plan = %q, want Standard", plan.Name)
			}
		})
	}
}
