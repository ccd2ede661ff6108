package mail

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Client sends transactional email through a ZeptoMail-compatible HTTP API.
type Client struct {
	apiURL     string
	apiKey     string
	from       string
	fromName   string
	templates  *template.Template
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	APIURL   string
	APIKey   string
	From     string
	FromName string
}

// New initialises a Client and parses the embedded email templates.
func New(opts Options) (*Client, error) {
	t, err := template.New("mail").ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Client{
		apiURL:     opts.APIURL,
		apiKey:     opts.APIKey,
		from:       opts.From,
		fromName:   opts.FromName,
		templates:  t,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Render executes the named template with the provided data.
func (c *Client) Render(name string, data any) (string, error) {
	if c == nil || c.templates == nil {
		return "", errors.New("mail: nil client")
	}
	buf := bytes.NewBuffer(nil)
	if err := c.templates.ExecuteTemplate(buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Send delivers one email to the given addresses.
func (c *Client) Send(ctx context.Context, to []string, subject, htmlBody, textBody string) error {
	if c.apiKey == "" {
		return errors.New("mail: api key not configured")
	}
	if len(to) == 0 {
		return errors.New("mail: no recipients")
	}

	recipients := make([]map[string]any, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, map[string]any{
			"email_address": map[string]any{"address": addr},
		})
	}

	payload := map[string]any{
		"from": map[string]any{
			"address": c.from,
			"name":    c.fromName,
		},
		"to":       recipients,
		"subject":  subject,
		"htmlbody": htmlBody,
		"textbody": textBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail: send returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
