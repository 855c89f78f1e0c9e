package transfusion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemovigil/hemovigil/internal/domain/product"
	"github.com/hemovigil/hemovigil/internal/platform/hl7"
)

// Registry is the slice of the product repository the recorder needs.
type Registry interface {
	FindForPatient(ctx context.Context, pid, barcode string) (*product.BloodProduct, error)
	CompareAndSetTransfused(ctx context.Context, id uuid.UUID) (bool, error)
}

// PatientLookup resolves wristband identifiers.
type PatientLookup interface {
	GetByPID(ctx context.Context, pid string) (*product.Patient, error)
}

type Service struct {
	registry  Registry
	patients  PatientLookup
	sender    hl7.Sender
	endpoints hl7.Endpoints
	log       zerolog.Logger

	now func() time.Time
}

func NewService(registry Registry, patients PatientLookup, sender hl7.Sender, endpoints hl7.Endpoints, log zerolog.Logger) *Service {
	return &Service{
		registry:  registry,
		patients:  patients,
		sender:    sender,
		endpoints: endpoints,
		log:       log,
		now:       time.Now,
	}
}

// Validate checks a scanned unit against a patient without changing any
// state. Checks run in a fixed order and stop at the first failure:
// association, expiry, status.
func (s *Service) Validate(ctx context.Context, pid, scannedCode string) (*ValidationResult, error) {
	barcode := hl7.NormalizeCode(scannedCode)
	result := &ValidationResult{Barcode: barcode}

	p, err := s.registry.FindForPatient(ctx, pid, barcode)
	if errors.Is(err, product.ErrNotFound) {
		result.Reason = ReasonUnassociated
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup product %s: %w", barcode, err)
	}
	result.Product = p

	if p.Expired(s.now()) {
		result.Reason = ReasonExpired
		return result, nil
	}

	if !p.Available() {
		result.Reason = ReasonInvalidStatus
		result.Status = p.Status
		return result, nil
	}

	if pat, err := s.patients.GetByPID(ctx, pid); err == nil {
		result.Patient = pat
	}

	result.Valid = true
	return result, nil
}

// Record commits a transfusion. It re-validates, performs the atomic
// status transition, then makes a single attempt to notify the blood bank.
// A failed notification does not roll the transition back; the result
// reports both outcomes.
func (s *Service) Record(ctx context.Context, pid, scannedCode, staffID string, volumeML *int) (*RecordResult, error) {
	res, err := s.Validate(ctx, pid, scannedCode)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, &ValidationError{Result: res}
	}

	won, err := s.registry.CompareAndSetTransfused(ctx, res.Product.ID)
	if err != nil {
		return nil, fmt.Errorf("set transfused %s: %w", res.Product.ID, err)
	}
	if !won {
		return nil, ErrConflict
	}
	res.Product.Status = product.StatusTransfused

	volume := res.Product.VolumeML
	if volumeML != nil && *volumeML > 0 {
		volume = *volumeML
	}

	event := hl7.Transfusion{
		Endpoints:         s.endpoints,
		PatientID:         pid,
		OrderRef:          res.Product.OrderRef,
		ProductBarcode:    res.Product.Barcode,
		ProductText:       res.Product.ProductType,
		ProductBloodGroup: res.Product.BloodGroup,
		VolumeML:          volume,
		StaffID:           staffID,
	}
	if res.Patient != nil {
		event.PatientName = res.Patient.Name
		event.PatientGender = res.Patient.Gender
		event.PatientBloodGroup = res.Patient.BloodGroup
		if res.Patient.DateOfBirth != nil {
			event.PatientDOB = *res.Patient.DateOfBirth
		}
	}

	message := hl7.EncodeTransfusion(event, s.now())
	result := &RecordResult{Product: res.Product, Event: event, Message: message, Delivered: true}

	if err := s.sender.Send(ctx, message); err != nil {
		s.log.Error().Err(err).
			Str("pid", pid).
			Str("barcode", res.Product.Barcode).
			Msg("transfusion recorded but blood bank notification failed")
		result.Delivered = false
		result.DeliveryError = err.Error()
	}

	return result, nil
}
