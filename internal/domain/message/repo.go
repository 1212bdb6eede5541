package message

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists conversation history. ListByPatient returns messages in
// timestamp-ascending order; ClearAlerts acknowledges every alerted message
// of a patient.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Message, error)
	ClearAlerts(ctx context.Context, patientID uuid.UUID) error
}
