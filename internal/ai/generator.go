package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const completionsURL = "https://api.openai.com/v1/chat/completions"

// Inputs are the structured fields an agreement is generated from. Every
// field is optional.
type Inputs struct {
	AgreementType         string `json:"agreementType"`
	OrgName               string `json:"orgName"`
	PartyName             string `json:"partyName"`
	EffectiveDate         string `json:"effectiveDate"`
	DurationMonths        string `json:"duration"`
	PaymentTerms          string `json:"paymentTerms"`
	Confidentiality       string `json:"confidentialityClauses"`
	TerminationConditions string `json:"terminationConditions"`
	CustomClauses         string `json:"customClauses"`
}

// Generator produces agreement text via a chat-completions API. The output
// is treated as a black box and stored verbatim.
type Generator struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// New builds a Generator for the given API key and model.
func New(apiKey, model string) *Generator {
	if model == "" {
		model = "gpt-4o"
	}
	return &Generator{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Generate assembles the prompt and returns the generated HTML agreement.
func (g *Generator) Generate(ctx context.Context, in Inputs) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("ai: api key not configured")
	}

	payload := map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": buildPrompt(in)},
		},
		"max_tokens": 10000,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionsURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ai: completions returned %d: %s", resp.StatusCode, snippet)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("ai: completions returned no choices")
	}

	text := out.Choices[0].Message.Content
	text = strings.ReplaceAll(text, "```html", "")
	text = strings.ReplaceAll(text, "```", "")
	return text, nil
}

func buildPrompt(in Inputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Agreement", in.AgreementType)

	if in.OrgName != "" || in.PartyName != "" {
		org := in.OrgName
		if org == "" {
			org = "the creator"
		}
		party := in.PartyName
		if party == "" {
			party = "the party"
		}
		fmt.Fprintf(&b, " between %s and %s", org, party)
	}
	if in.EffectiveDate != "" {
		fmt.Fprintf(&b, ", effective from %s", in.EffectiveDate)
	}
	if months, err := strconv.Atoi(strings.TrimSpace(in.DurationMonths)); err == nil && months > 0 {
		fmt.Fprintf(&b, ", valid for %d months", months)
	}
	b.WriteString(".")

	clauses := []struct{ label, content string }{
		{"Payment Terms", in.PaymentTerms},
		{"Confidentiality Clauses", in.Confidentiality},
		{"Termination Conditions", in.TerminationConditions},
		{"Custom Clauses", in.CustomClauses},
	}
	for _, c := range clauses {
		if c.content != "" {
			fmt.Fprintf(&b, " %s: %s.", c.label, c.content)
		}
	}

	b.WriteString(" Provide the complete detailed and professional agreement in HTML format." +
		" No additional input fields for signing or date etc, just the agreement text.")
	return b.String()
}
