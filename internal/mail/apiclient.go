// Package mail implements the outbound message senders the OTP engine
// dispatches codes through: an HTTP transactional-mail API client and a plain
// SMTP client.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// APIClient sends email via an HTTP transactional mail API
// (POST {from,to,subject,html} with a bearer key).
type APIClient struct {
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client
}

// NewAPIClient returns a client that posts messages to baseURL using apiKey.
func NewAPIClient(apiKey, baseURL, from string) *APIClient {
	return &APIClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		From:       from,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Send delivers an HTML email to the given address. Does not log the body,
// which carries the passcode.
func (c *APIClient) Send(ctx context.Context, to, subject, htmlBody string) error {
	if c.APIKey == "" {
		return fmt.Errorf("mail: API key not configured")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("mail: base URL not configured")
	}
	payload := map[string]string{
		"from":    c.From,
		"to":      to,
		"subject": subject,
		"html":    htmlBody,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
