package ai

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name     string
		in       Inputs
		contains []string
		excludes []string
	}{
		{
			name: "full inputs",
			in: Inputs{
				AgreementType:         "NDA",
				OrgName:               "Acme Corp",
				PartyName:             "Jordan Diaz",
				EffectiveDate:         "2026-04-01",
				DurationMonths:        "12",
				PaymentTerms:          "net 30",
				Confidentiality:       "strict",
				TerminationConditions: "30 days notice",
				CustomClauses:         "non-solicitation",
			},
			contains: []string{
				"NDA Agreement between Acme Corp and Jordan Diaz",
				"effective from 2026-04-01",
				"valid for 12 months",
				"Payment Terms: net 30.",
				"Confidentiality Clauses: strict.",
				"Termination Conditions: 30 days notice.",
				"Custom Clauses: non-solicitation.",
				"HTML format",
			},
		},
		{
			name: "missing party falls back",
			in:   Inputs{AgreementType: "Service", OrgName: "Acme Corp"},
			contains: []string{
				"Service Agreement between Acme Corp and the party",
			},
			excludes: []string{"effective from", "valid for", "Payment Terms"},
		},
		{
			name:     "non-numeric duration dropped",
			in:       Inputs{AgreementType: "NDA", DurationMonths: "a year"},
			excludes: []string{"valid for"},
		},
		{
			name:     "bare type",
			in:       Inputs{AgreementType: "NDA"},
			contains: []string{"NDA Agreement."},
			excludes: []string{"between"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildPrompt(tt.in)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Fatalf("prompt missing %q:\n%s", want, got)
				}
			}
			for _, banned := range tt.excludes {
				if strings.Contains(got, banned) {
					t.Fatalf("prompt must not contain %q:\n%s", banned, got)
				}
			}
		})
	}
}
