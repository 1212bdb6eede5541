// Package ingest receives provider webhook deliveries and runs them through
// the inbound message pipeline.
package ingest

import "strings"

// WebhookPayload is the provider's delivery envelope. Deliveries carry many
// event kinds (status updates, acks); only text messages are of interest and
// everything else parses to a benign non-event.
type WebhookPayload struct {
	Entry []Entry `json:"entry"`
}

type Entry struct {
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value `json:"value"`
}

type Value struct {
	Messages []ProviderMessage `json:"messages"`
}

type ProviderMessage struct {
	From string    `json:"from"`
	Type string    `json:"type"`
	Text *TextBody `json:"text"`
}

type TextBody struct {
	Body string `json:"body"`
}

// InboundMessage is a normalized inbound text message.
type InboundMessage struct {
	From string
	Text string
}

// ParseInbound extracts the first text message from a delivery. The second
// return value is false when the envelope holds no usable text message; that
// is not an error, the delivery is simply ignored.
func ParseInbound(p WebhookPayload) (*InboundMessage, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return nil, false
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return nil, false
	}

	msg := msgs[0]
	if msg.Text == nil {
		return nil, false
	}
	from := strings.TrimSpace(msg.From)
	text := strings.TrimSpace(msg.Text.Body)
	if from == "" || text == "" {
		return nil, false
	}
	return &InboundMessage{From: from, Text: text}, true
}
