package ingest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemovigil/hemovigil/internal/domain/product"
	"github.com/hemovigil/hemovigil/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

func (r *messageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const messageCols = `id, raw, message_type, sending_app, patient_pid, order_count, blood_group, received_at`

func scanMessage(row pgx.Row) (*InboundMessage, error) {
	var m InboundMessage
	err := row.Scan(&m.ID, &m.Raw, &m.MessageType, &m.SendingApp, &m.PatientPID,
		&m.OrderCount, &m.BloodGroup, &m.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, product.ErrNotFound
	}
	return &m, err
}

func (r *messageRepoPG) Create(ctx context.Context, m *InboundMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hl7_messages (id, raw, message_type, sending_app, patient_pid, order_count, blood_group)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.Raw, m.MessageType, m.SendingApp, m.PatientPID, m.OrderCount, m.BloodGroup)
	return err
}

func (r *messageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InboundMessage, error) {
	return scanMessage(r.conn(ctx).QueryRow(ctx, `SELECT `+messageCols+` FROM hl7_messages WHERE id = $1`, id))
}

func (r *messageRepoPG) List(ctx context.Context, limit, offset int) ([]*InboundMessage, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hl7_messages`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+messageCols+` FROM hl7_messages ORDER BY received_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*InboundMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}
