package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Event kinds we recognize. Anything else is carried through with its
// raw Type and ignored by the router.
const (
	EventFollow      = "follow"
	EventUnfollow    = "unfollow"
	EventMessage     = "message"
	EventAccountLink = "accountLink"
)

// Event is one webhook event, decoded once at the boundary. Type is the
// tag; Message and Link are only populated for their event kinds.
type Event struct {
	Type    string        `json:"type"`
	Source  EventSource   `json:"source"`
	Message *MessageEvent `json:"message,omitempty"`
	Link    *LinkEvent    `json:"link,omitempty"`
}

// EventSource identifies who the event came from. UserID is the
// messaging channel identity.
type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type MessageEvent struct {
	Type string `json:"type"` // "text", "sticker", ...
	Text string `json:"text"`
}

// LinkEvent is the platform-native account-link callback. On
// Result == "ok" the Nonce carries the link token.
type LinkEvent struct {
	Result string `json:"result"`
	Nonce  string `json:"nonce"`
}

type webhookBody struct {
	Events []Event `json:"events"`
}

// ValidateSignature checks the X-Line-Signature header against the raw
// request body: base64(HMAC-SHA256(channelSecret, body)).
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook decodes a webhook delivery body into its events.
// Events are returned in array order; the caller owns per-event error
// isolation.
func ParseWebhook(body []byte) ([]Event, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("line: decoding webhook body: %w", err)
	}
	return wb.Events, nil
}
