package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, phone_number, name, conversation_mode, height_cm, start_weight,
	target_weight, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PhoneNumber, &p.Name, &p.ConversationMode, &p.HeightCM,
		&p.StartWeight, &p.TargetWeight, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, phone_number, name, conversation_mode, height_cm,
			start_weight, target_weight)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.PhoneNumber, p.Name, p.ConversationMode, p.HeightCM,
		p.StartWeight, p.TargetWeight).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByPhone(ctx context.Context, phoneNumber string) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE phone_number = $1`, phoneNumber))
}

func (r *repoPG) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.phone_number, p.name, p.conversation_mode, p.height_cm,
			p.start_weight, p.target_weight, p.created_at, p.updated_at,
			EXISTS (
				SELECT 1 FROM messages m
				WHERE m.patient_id = p.id AND m.has_alert
			) AS has_alert
		FROM patients p
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.PhoneNumber, &p.Name, &p.ConversationMode, &p.HeightCM,
			&p.StartWeight, &p.TargetWeight, &p.CreatedAt, &p.UpdatedAt, &p.HasAlert); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET name=$2, conversation_mode=$3, height_cm=$4,
			start_weight=$5, target_weight=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.ConversationMode, p.HeightCM, p.StartWeight, p.TargetWeight)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type metricRepoPG struct{ pool *pgxpool.Pool }

func NewMetricRepoPG(pool *pgxpool.Pool) MetricRepository {
	return &metricRepoPG{pool: pool}
}

func (r *metricRepoPG) Create(ctx context.Context, m *Metric) error {
	m.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO metrics (id, patient_id, metric_type, value)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		m.ID, m.PatientID, m.MetricType, m.Value).Scan(&m.CreatedAt)
}

func (r *metricRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Metric, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, metric_type, value, created_at
		FROM metrics WHERE patient_id = $1
		ORDER BY created_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.ID, &m.PatientID, &m.MetricType, &m.Value, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}
