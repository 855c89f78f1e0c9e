package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a patient or product row does not exist.
var ErrNotFound = errors.New("not found")

type PatientRepository interface {
	GetByPID(ctx context.Context, pid string) (*Patient, error)
	// Upsert inserts the patient or refreshes the demographic fields of an
	// existing row keyed by PID.
	Upsert(ctx context.Context, p *Patient) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *BloodProduct) error
	GetByID(ctx context.Context, id uuid.UUID) (*BloodProduct, error)
	// FindForPatient resolves a canonical barcode scoped to the patient it
	// is reserved for. ErrNotFound covers both an unknown barcode and a
	// barcode associated with a different patient.
	FindForPatient(ctx context.Context, pid, barcode string) (*BloodProduct, error)
	ListByPatient(ctx context.Context, pid string) ([]*BloodProduct, error)
	List(ctx context.Context, limit, offset int) ([]*BloodProduct, int, error)
	MarkCollected(ctx context.Context, id uuid.UUID) error
	// CompareAndSetTransfused atomically moves the product to transfused.
	// It returns true when this call performed the transition and false
	// when the product was no longer in a transfusable status.
	CompareAndSetTransfused(ctx context.Context, id uuid.UUID) (bool, error)
}
