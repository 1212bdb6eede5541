package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patients. Create must fail with a duplicate error when
// the phone number is already registered; List reports HasAlert computed from
// unread alerted messages.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByPhone(ctx context.Context, phoneNumber string) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
}

// MetricRepository persists extracted health metrics.
type MetricRepository interface {
	Create(ctx context.Context, m *Metric) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Metric, error)
}
