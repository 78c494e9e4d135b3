// Package line talks to the LINE Messaging API: outbound pushes to a
// chat contact, and inbound webhook parsing with signature verification.
//
// The wire protocol is plain JSON over HTTPS, so this is a small
// hand-rolled client rather than a vendor SDK; webhook events are
// decoded once at the boundary into a tagged union (see webhook.go).
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const pushURL = "https://api.line.me/v2/bot/message/push"

// Client pushes messages to a chat contact identified by their
// messaging channel ID.
type Client struct {
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a Client using the channel access token for
// authorization. Outbound calls carry a bounded timeout so a stalled
// LINE API cannot wedge a webhook reply or a scheduled run.
func NewClient(accessToken string) *Client {
	return &Client{
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// PushText sends a single text message to the contact.
func (c *Client) PushText(ctx context.Context, to, text string) error {
	return c.PushTexts(ctx, to, []string{text})
}

// PushTexts sends up to five text messages in one push (the Messaging
// API limit per request).
func (c *Client) PushTexts(ctx context.Context, to string, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	if len(texts) > 5 {
		texts = texts[:5]
	}

	msgs := make([]textMessage, len(texts))
	for i, t := range texts {
		msgs[i] = textMessage{Type: "text", Text: t}
	}

	body, err := json.Marshal(pushRequest{To: to, Messages: msgs})
	if err != nil {
		return fmt.Errorf("line: encoding push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line: pushing message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The error body is short JSON; include it for the log line.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line: push returned status %d: %s", resp.StatusCode, detail)
	}

	return nil
}
