package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuideme/cuideme/internal/domain/message"
	"github.com/cuideme/cuideme/internal/domain/patient"
	"github.com/cuideme/cuideme/internal/platform/classify"
	"github.com/cuideme/cuideme/internal/platform/whatsapp"
)

// Classifier analyzes an inbound message. ok=false means no analysis is
// available; the pipeline then proceeds with a zero result.
type Classifier interface {
	Classify(ctx context.Context, text string) (classify.Result, bool)
}

// Pipeline processes inbound messages: resolve the patient, classify,
// record metrics, auto-reply, persist and broadcast. Classification, metric
// persistence, welcome and auto-reply sends are best-effort; only patient
// resolution and message persistence can fail the delivery.
type Pipeline struct {
	patients   *patient.Service
	messages   *message.Service
	classifier Classifier
	sender     whatsapp.Sender
	welcome    string
	logger     zerolog.Logger
}

func NewPipeline(
	patients *patient.Service,
	messages *message.Service,
	classifier Classifier,
	sender whatsapp.Sender,
	welcome string,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		patients:   patients,
		messages:   messages,
		classifier: classifier,
		sender:     sender,
		welcome:    welcome,
		logger:     logger,
	}
}

// Process handles one webhook delivery. Non-message deliveries return nil
// without side effects.
func (p *Pipeline) Process(ctx context.Context, payload WebhookPayload) error {
	inbound, ok := ParseInbound(payload)
	if !ok {
		return nil
	}

	pat, created, err := p.patients.GetOrCreate(ctx, inbound.From)
	if err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}

	if created && p.welcome != "" {
		if err := p.sender.Send(ctx, pat.PhoneNumber, p.welcome); err != nil {
			p.logger.Warn().Err(err).Str("patient_id", pat.ID.String()).
				Msg("welcome message delivery failed")
		}
	}

	result, classified := p.classifier.Classify(ctx, inbound.Text)
	if !classified {
		result = classify.Result{}
	}

	for _, m := range result.Metrics {
		if _, err := p.patients.RecordMetric(ctx, pat.ID, m.Type, m.Value); err != nil {
			p.logger.Warn().Err(err).Str("patient_id", pat.ID.String()).
				Str("metric_type", m.Type).Msg("metric persistence failed")
		}
	}

	var suggestion *string
	if result.AutoReply != "" {
		reply := result.AutoReply
		suggestion = &reply
		if pat.ConversationMode == patient.ModeAutomatic {
			if err := p.sender.Send(ctx, pat.PhoneNumber, reply); err != nil {
				p.logger.Warn().Err(err).Str("patient_id", pat.ID.String()).
					Msg("auto-reply delivery failed")
			}
		}
	}

	msg := &message.Message{
		PatientID:    pat.ID,
		Body:         inbound.Text,
		Sender:       message.SenderPatient,
		HasAlert:     result.IsAlert,
		AISuggestion: suggestion,
	}
	if err := p.messages.Record(ctx, msg); err != nil {
		return fmt.Errorf("record inbound message: %w", err)
	}

	p.logger.Info().
		Str("patient_id", pat.ID.String()).
		Bool("has_alert", msg.HasAlert).
		Int("metrics", len(result.Metrics)).
		Msg("inbound message processed")
	return nil
}
