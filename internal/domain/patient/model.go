// Package patient owns the contact registry: every conversation partner seen
// on the inbound channel becomes a patient record keyed by phone number.
package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a patient does not exist.
var ErrNotFound = errors.New("patient not found")

// Conversation modes. In automatic mode AI-suggested replies are sent back to
// the patient without operator review; in manual mode they are stored as
// suggestions only.
const (
	ModeAutomatic = "automatic"
	ModeManual    = "manual"
)

// ValidMode reports whether m is a known conversation mode.
func ValidMode(m string) bool {
	return m == ModeAutomatic || m == ModeManual
}

// Patient is a monitored person reachable over the messaging channel.
// Name and the baseline measurements are optional and filled in by operators
// after first contact.
type Patient struct {
	ID               uuid.UUID `json:"id"`
	PhoneNumber      string    `json:"phone_number"`
	Name             *string   `json:"name"`
	ConversationMode string    `json:"conversation_mode"`
	HeightCM         *float64  `json:"height_cm"`
	StartWeight      *float64  `json:"start_weight"`
	TargetWeight     *float64  `json:"target_weight"`
	HasAlert         bool      `json:"has_alert"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Metric is a single health measurement extracted from a patient message.
type Metric struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	MetricType string    `json:"metric_type"`
	Value      float64   `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
}

// UpdateParams carries a partial patient update; nil fields are left
// untouched.
type UpdateParams struct {
	Name             *string  `json:"name"`
	ConversationMode *string  `json:"conversation_mode"`
	HeightCM         *float64 `json:"height_cm"`
	StartWeight      *float64 `json:"start_weight"`
	TargetWeight     *float64 `json:"target_weight"`
}
