// Package classify wraps the external AI service that enriches inbound patient
// messages. Classification is best-effort: any failure (unconfigured service,
// transport error, malformed reply) yields an "unavailable" outcome rather
// than an error, so callers never depend on it.
package classify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

const model = anthropic.Model("claude-3-5-haiku-latest")

const systemPrompt = `You triage messages from patients in a remote-monitoring program.
Analyze the patient's message and respond with a single JSON object, nothing else:
{"is_alert": bool, "auto_reply_text": string or null, "extracted_metrics": [{"type": string, "value": number}]}
Set is_alert when the message suggests pain, distress, missed medication or
anything a clinician should look at. Extract numeric health measurements
(weight, glucose, blood pressure, temperature) into extracted_metrics.`

// ExtractedMetric is one numeric measurement found in a message.
type ExtractedMetric struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Result is the normalized reply of the classification service. Zero value
// means: no alert, no auto-reply, no metrics.
type Result struct {
	IsAlert   bool              `json:"is_alert"`
	AutoReply string            `json:"auto_reply_text"`
	Metrics   []ExtractedMetric `json:"extracted_metrics"`
}

// completer abstracts the model call so tests can substitute a fake.
type completer interface {
	Complete(ctx context.Context, text string) (string, error)
}

// Classifier calls the classification service and normalizes its reply.
type Classifier struct {
	completer completer
	logger    zerolog.Logger
}

// New builds a Classifier. An empty API key yields a classifier that always
// reports unavailable.
func New(apiKey string, logger zerolog.Logger) *Classifier {
	c := &Classifier{logger: logger}
	if apiKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(apiKey))
		c.completer = &anthropicCompleter{client: &client}
	}
	return c
}

func newWithCompleter(cp completer, logger zerolog.Logger) *Classifier {
	return &Classifier{completer: cp, logger: logger}
}

// Classify analyzes a patient message. The second return value is false when
// classification is unavailable; the pipeline then proceeds unenriched.
func (c *Classifier) Classify(ctx context.Context, text string) (Result, bool) {
	if c == nil || c.completer == nil {
		return Result{}, false
	}

	raw, err := c.completer.Complete(ctx, text)
	if err != nil {
		c.logger.Warn().Err(err).Msg("classification call failed")
		return Result{}, false
	}

	var res Result
	if err := json.Unmarshal([]byte(stripFences(raw)), &res); err != nil {
		c.logger.Warn().Err(err).Str("reply", raw).Msg("classification reply is not valid JSON")
		return Result{}, false
	}
	return res, true
}

// stripFences removes markdown code-fence markers some models wrap around
// their JSON payloads.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

type anthropicCompleter struct {
	client *anthropic.Client
}

func (a *anthropicCompleter) Complete(ctx context.Context, text string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}
