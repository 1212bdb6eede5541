package message

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO messages (id, patient_id, body, sender, has_alert, ai_suggestion)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		m.ID, m.PatientID, m.Body, m.Sender, m.HasAlert, m.AISuggestion).Scan(&m.CreatedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, body, sender, has_alert, ai_suggestion, created_at
		FROM messages WHERE patient_id = $1
		ORDER BY created_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.PatientID, &m.Body, &m.Sender, &m.HasAlert,
			&m.AISuggestion, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *repoPG) ClearAlerts(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE messages SET has_alert = FALSE
		WHERE patient_id = $1 AND has_alert`, patientID)
	return err
}
