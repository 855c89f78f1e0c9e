package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemovigil/hemovigil/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, pid, name, date_of_birth, gender, blood_group, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PID, &p.Name, &p.DateOfBirth, &p.Gender, &p.BloodGroup, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *patientRepoPG) GetByPID(ctx context.Context, pid string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE pid = $1`, pid))
}

func (r *patientRepoPG) Upsert(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	// COALESCE/NULLIF keeps existing values when the inbound message left
	// a field empty.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, pid, name, date_of_birth, gender, blood_group)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (pid) DO UPDATE SET
			name          = COALESCE(NULLIF(EXCLUDED.name, ''), patients.name),
			date_of_birth = COALESCE(EXCLUDED.date_of_birth, patients.date_of_birth),
			gender        = COALESCE(NULLIF(EXCLUDED.gender, ''), patients.gender),
			blood_group   = COALESCE(NULLIF(EXCLUDED.blood_group, ''), patients.blood_group),
			updated_at    = NOW()
		RETURNING id`,
		p.ID, p.PID, p.Name, p.DateOfBirth, p.Gender, p.BloodGroup).Scan(&p.ID)
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

type productRepoPG struct{ pool *pgxpool.Pool }

func NewProductRepoPG(pool *pgxpool.Pool) ProductRepository {
	return &productRepoPG{pool: pool}
}

func (r *productRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const productCols = `id, barcode, blood_group, product_type, expires_at, patient_pid, order_ref, volume_ml, status, created_at, updated_at`

func scanProduct(row pgx.Row) (*BloodProduct, error) {
	var p BloodProduct
	err := row.Scan(&p.ID, &p.Barcode, &p.BloodGroup, &p.ProductType, &p.ExpiresAt, &p.PatientPID,
		&p.OrderRef, &p.VolumeML, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *productRepoPG) Create(ctx context.Context, p *BloodProduct) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusReserved
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO blood_products (id, barcode, blood_group, product_type, expires_at, patient_pid, order_ref, volume_ml, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Barcode, p.BloodGroup, p.ProductType, p.ExpiresAt, p.PatientPID, p.OrderRef, p.VolumeML, p.Status)
	return err
}

func (r *productRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BloodProduct, error) {
	return scanProduct(r.conn(ctx).QueryRow(ctx, `SELECT `+productCols+` FROM blood_products WHERE id = $1`, id))
}

func (r *productRepoPG) FindForPatient(ctx context.Context, pid, barcode string) (*BloodProduct, error) {
	return scanProduct(r.conn(ctx).QueryRow(ctx,
		`SELECT `+productCols+` FROM blood_products WHERE patient_pid = $1 AND barcode = $2`, pid, barcode))
}

func (r *productRepoPG) ListByPatient(ctx context.Context, pid string) ([]*BloodProduct, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+productCols+` FROM blood_products WHERE patient_pid = $1 ORDER BY created_at DESC`, pid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BloodProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *productRepoPG) List(ctx context.Context, limit, offset int) ([]*BloodProduct, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_products`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+productCols+` FROM blood_products ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*BloodProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *productRepoPG) MarkCollected(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_products SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		id, StatusCollected, StatusReserved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompareAndSetTransfused performs the single-winner transition. The
// conditional UPDATE is the linearization point: exactly one concurrent
// caller observes a row count of 1.
func (r *productRepoPG) CompareAndSetTransfused(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_products SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)`,
		id, StatusTransfused, StatusReserved, StatusCollected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
