package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type Service struct {
	patients Repository
	metrics  MetricRepository
}

func NewService(patients Repository, metrics MetricRepository) *Service {
	return &Service{patients: patients, metrics: metrics}
}

// GetOrCreate resolves a phone number to its patient, registering a new one
// with automatic conversation mode on first contact. The second return value
// reports whether the patient was created by this call. Concurrent first
// contacts race on the phone-number unique index; the loser re-fetches the
// winner's row, so at most one record per number ever exists.
func (s *Service) GetOrCreate(ctx context.Context, phoneNumber string) (*Patient, bool, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, false, fmt.Errorf("phone number is required")
	}

	p, err := s.patients.GetByPhone(ctx, phoneNumber)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup patient: %w", err)
	}

	p = &Patient{
		PhoneNumber:      phoneNumber,
		ConversationMode: ModeAutomatic,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			existing, err := s.patients.GetByPhone(ctx, phoneNumber)
			if err != nil {
				return nil, false, fmt.Errorf("refetch patient after conflict: %w", err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create patient: %w", err)
	}
	return p, true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	return s.patients.List(ctx)
}

// Update applies a partial update; nil fields keep their current values.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Patient, error) {
	if params.ConversationMode != nil && !ValidMode(*params.ConversationMode) {
		return nil, fmt.Errorf("invalid conversation mode: %s", *params.ConversationMode)
	}

	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		p.Name = params.Name
	}
	if params.ConversationMode != nil {
		p.ConversationMode = *params.ConversationMode
	}
	if params.HeightCM != nil {
		p.HeightCM = params.HeightCM
	}
	if params.StartWeight != nil {
		p.StartWeight = params.StartWeight
	}
	if params.TargetWeight != nil {
		p.TargetWeight = params.TargetWeight
	}

	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) RecordMetric(ctx context.Context, patientID uuid.UUID, metricType string, value float64) (*Metric, error) {
	if metricType == "" {
		return nil, fmt.Errorf("metric type is required")
	}
	m := &Metric{PatientID: patientID, MetricType: metricType, Value: value}
	if err := s.metrics.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("record metric: %w", err)
	}
	return m, nil
}

func (s *Service) ListMetrics(ctx context.Context, patientID uuid.UUID) ([]*Metric, error) {
	return s.metrics.ListByPatient(ctx, patientID)
}
