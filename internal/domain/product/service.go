package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hemovigil/hemovigil/internal/platform/hl7"
)

type Service struct {
	patients PatientRepository
	products ProductRepository
}

func NewService(patients PatientRepository, products ProductRepository) *Service {
	return &Service{patients: patients, products: products}
}

var validStatuses = map[string]bool{
	StatusReserved: true, StatusCollected: true, StatusTransfused: true,
}

// PatientWithProducts is the lookup screen payload: the patient plus every
// product associated with them.
type PatientWithProducts struct {
	Patient  *Patient        `json:"patient"`
	Products []*BloodProduct `json:"products"`
}

func (s *Service) GetPatientWithProducts(ctx context.Context, pid string) (*PatientWithProducts, error) {
	p, err := s.patients.GetByPID(ctx, pid)
	if err != nil {
		return nil, err
	}
	items, err := s.products.ListByPatient(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("list products for %s: %w", pid, err)
	}
	return &PatientWithProducts{Patient: p, Products: items}, nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) CreateProduct(ctx context.Context, p *BloodProduct) error {
	p.Barcode = hl7.NormalizeCode(p.Barcode)
	if p.Barcode == "" {
		return fmt.Errorf("barcode is required")
	}
	if p.ExpiresAt.IsZero() {
		return fmt.Errorf("expiry date is required")
	}
	if p.Status != "" && !validStatuses[p.Status] {
		return fmt.Errorf("invalid status: %s", p.Status)
	}
	if p.Status == StatusTransfused {
		return fmt.Errorf("products cannot be created as transfused")
	}
	return s.products.Create(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*BloodProduct, error) {
	return s.products.GetByID(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, limit, offset int) ([]*BloodProduct, int, error) {
	return s.products.List(ctx, limit, offset)
}

// CollectProduct marks a reserved product as picked up from the blood bank.
func (s *Service) CollectProduct(ctx context.Context, id uuid.UUID) (*BloodProduct, error) {
	if err := s.products.MarkCollected(ctx, id); err != nil {
		return nil, err
	}
	return s.products.GetByID(ctx, id)
}
