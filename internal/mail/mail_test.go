package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(t *testing.T, apiURL string) *Client {
	t.Helper()
	c, err := New(Options{
		APIURL:   apiURL,
		APIKey:   "Zoho-enczapikey test",
		From:     "noreply@example.com",
		FromName: "Example",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestRenderTemplates(t *testing.T) {
	c := testClient(t, "")

	tests := []struct {
		template string
		data     map[string]any
		contains []string
	}{
		{
			template: "sign_invitation",
			data:     map[string]any{"CreatorEmail": "owner@example.com", "Link": "https://app/sign/abc"},
			contains: []string{"owner@example.com", "https://app/sign/abc", "invitation"},
		},
		{
			template: "signature_completed",
			data:     map[string]any{"SigneeEmail": "signee@example.com", "Link": "https://app/agreement/abc"},
			contains: []string{"signee@example.com", "https://app/agreement/abc"},
		},
		{
			template: "signee_approved",
			data:     map[string]any{"CreatorEmail": "owner@example.com", "AgreementName": "Big NDA"},
			contains: []string{"approved", "Big NDA", "owner@example.com"},
		},
		{
			template: "signee_rejected",
			data:     map[string]any{"CreatorEmail": "owner@example.com", "AgreementName": "Big NDA", "Reason": "blurry scan"},
			contains: []string{"rejected", "blurry scan"},
		},
		{
			template: "status_update",
			data:     map[string]any{"AgreementName": "Big NDA", "SigneeEmail": "signee@example.com", "Status": "complete"},
			contains: []string{"Big NDA", "complete", "signee@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			html, err := c.Render(tt.template, tt.data)
			if err != nil {
				t.Fatalf("Render(%q) error = %v", tt.template, err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(html, want) {
					t.Fatalf("rendered %q missing %q:\n%s", tt.template, want, html)
				}
			}
		})
	}
}

func TestRenderEscapesData(t *testing.T) {
	c := testClient(t, "")

	html, err := c.Render("signee_rejected", map[string]any{
		"CreatorEmail":  "owner@example.com",
		"AgreementName": "NDA",
		"Reason":        `<script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("template data must be HTML-escaped")
	}
}

func TestSendPayload(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	err := c.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "Hello", "<p>hi</p>", "hi")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if auth != "Zoho-enczapikey test" {
		t.Fatalf("authorization header = %q", auth)
	}
	if got["subject"] != "Hello" || got["htmlbody"] != "<p>hi</p>" || got["textbody"] != "hi" {
		t.Fatalf("unexpected payload %v", got)
	}
	to, _ := got["to"].([]any)
	if len(to) != 2 {
		t.Fatalf("recipients = %v", got["to"])
	}
}

func TestSendRequiresAPIKey(t *testing.T) {
	c, err := New(Options{APIURL: "https://mail.invalid"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Send(context.Background(), []string{"a@example.com"}, "s", "h", "t"); err == nil {
		t.Fatal("sending without an api key must fail")
	}
}
