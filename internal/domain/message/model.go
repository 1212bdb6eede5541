// Package message owns the conversation history of a patient and manual
// outbound sends by operators.
package message

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDeliveryFailed is returned when the messaging provider rejects an
// outbound send.
var ErrDeliveryFailed = errors.New("message delivery failed")

// Message senders.
const (
	SenderPatient      = "patient"
	SenderProfessional = "professional"
)

// Message is one entry in a patient's conversation history. HasAlert marks
// messages the classifier flagged for operator attention; reading the history
// acknowledges them. AISuggestion holds a suggested reply that was not sent
// automatically.
type Message struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	Body         string    `json:"text"`
	Sender       string    `json:"sender"`
	HasAlert     bool      `json:"has_alert"`
	AISuggestion *string   `json:"ai_suggestion"`
	CreatedAt    time.Time `json:"timestamp"`
}
