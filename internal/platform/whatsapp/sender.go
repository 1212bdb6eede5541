// Package whatsapp sends text messages to patients through the WhatsApp
// Cloud API. There is no retry policy: a failed send is reported to the
// caller, who decides whether it was best-effort or fatal.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sender is the interface for delivering a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// Client talks to the WhatsApp Cloud API.
type Client struct {
	httpClient    *http.Client
	apiBase       string
	phoneNumberID string
	token         string
}

// NewClient builds a Cloud API client. apiBase is the Graph API root
// (e.g. https://graph.facebook.com/v20.0).
func NewClient(apiBase, phoneNumberID, token string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		apiBase:       apiBase,
		phoneNumberID: phoneNumberID,
		token:         token,
	}
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// Send performs one synchronous Cloud API call. A non-2xx response or a
// transport failure is returned as an error.
func (c *Client) Send(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp API returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// NopSender logs outbound messages and drops them. Used when the Cloud API
// credentials are not configured, so the rest of the pipeline still works in
// local development.
type NopSender struct {
	logger zerolog.Logger
}

func NewNopSender(logger zerolog.Logger) *NopSender {
	return &NopSender{logger: logger}
}

func (n *NopSender) Send(_ context.Context, to, text string) error {
	n.logger.Info().Str("to", to).Str("text", text).Msg("outbound message dropped (no provider configured)")
	return nil
}

// SendCall records a single call to a MockSender.
type SendCall struct {
	To   string
	Text string
}

// MockSender is a test double for Sender.
type MockSender struct {
	mu         sync.Mutex
	calls      []SendCall
	ShouldFail bool
	FailError  error
}

// Send records the call and optionally returns an error.
func (m *MockSender) Send(_ context.Context, to, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SendCall{To: to, Text: text})
	if m.ShouldFail {
		if m.FailError != nil {
			return m.FailError
		}
		return fmt.Errorf("send failed")
	}
	return nil
}

// Reset clears recorded calls.
func (m *MockSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Calls returns a copy of recorded calls.
func (m *MockSender) Calls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendCall, len(m.calls))
	copy(out, m.calls)
	return out
}
