package message

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cuideme/cuideme/internal/domain/patient"
	"github.com/cuideme/cuideme/internal/platform/websocket"
	"github.com/cuideme/cuideme/internal/platform/whatsapp"
)

// Broadcaster pushes new-message events to live viewers of a patient.
type Broadcaster interface {
	Publish(patientID uuid.UUID, event websocket.Event)
}

type Service struct {
	messages Repository
	patients patient.Repository
	sender   whatsapp.Sender
	hub      Broadcaster
}

func NewService(messages Repository, patients patient.Repository, sender whatsapp.Sender, hub Broadcaster) *Service {
	return &Service{messages: messages, patients: patients, sender: sender, hub: hub}
}

// History returns the conversation in timestamp-ascending order and then
// acknowledges any alerted messages. Reading the history is the alert
// acknowledgement; a second read reports no alerts.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]*Message, error) {
	items, err := s.messages.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if err := s.messages.ClearAlerts(ctx, patientID); err != nil {
		return nil, fmt.Errorf("clear alerts: %w", err)
	}
	return items, nil
}

// Record persists a message and notifies live viewers. Broadcast is
// best-effort: a viewer-less patient is a no-op.
func (s *Service) Record(ctx context.Context, m *Message) error {
	if err := s.messages.Create(ctx, m); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}
	s.hub.Publish(m.PatientID, websocket.Event{
		ID:           m.ID,
		Text:         m.Body,
		Sender:       m.Sender,
		Timestamp:    m.CreatedAt,
		AISuggestion: m.AISuggestion,
	})
	return nil
}

// Send delivers an operator-authored message to the patient's phone, then
// persists and broadcasts it. Delivery failure aborts the send: nothing is
// persisted and ErrDeliveryFailed is returned.
func (s *Service) Send(ctx context.Context, patientID uuid.UUID, text string) (*Message, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if err := s.sender.Send(ctx, p.PhoneNumber, text); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	m := &Message{
		PatientID: patientID,
		Body:      text,
		Sender:    SenderProfessional,
	}
	if err := s.Record(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
