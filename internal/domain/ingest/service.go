package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hemovigil/hemovigil/internal/domain/product"
	"github.com/hemovigil/hemovigil/internal/platform/db"
	"github.com/hemovigil/hemovigil/internal/platform/hl7"
)

// ErrEmptyMessage is returned for empty or whitespace-only payloads, the
// only input the decoder rejects.
var ErrEmptyMessage = errors.New("empty message")

// defaultShelfLife is assumed for orders that do not carry an expiry.
// Red cell concentrates keep for 42 days; the ordering system overrides
// this through the product API when it knows better.
const defaultShelfLife = 42 * 24 * time.Hour

type Service struct {
	messages MessageRepository
	patients product.PatientRepository
	products product.ProductRepository
	pool     *pgxpool.Pool
	log      zerolog.Logger

	now func() time.Time
}

// NewService wires the ingest pipeline. pool may be nil, in which case
// the writes run without a shared transaction.
func NewService(messages MessageRepository, patients product.PatientRepository, products product.ProductRepository, pool *pgxpool.Pool, log zerolog.Logger) *Service {
	return &Service{
		messages: messages,
		patients: patients,
		products: products,
		pool:     pool,
		log:      log,
		now:      time.Now,
	}
}

// Ingest decodes an inbound blood-bank message, stores the raw text, and
// updates the registry: the patient row is upserted from the PID segment
// and each ordered unit becomes a reserved product. Malformed segment
// content never fails the call; only an empty payload does.
func (s *Service) Ingest(ctx context.Context, raw string) (*InboundMessage, error) {
	msg := hl7.Decode(raw)
	if msg == nil {
		return nil, ErrEmptyMessage
	}

	rec := &InboundMessage{
		Raw:         raw,
		MessageType: msg.Header.Type,
		SendingApp:  msg.Header.SendingApp,
		OrderCount:  len(msg.Orders),
		BloodGroup:  msg.BloodGroup,
		ReceivedAt:  s.now(),
	}
	if msg.Patient != nil {
		rec.PatientPID = msg.Patient.ID
	}

	apply := func(ctx context.Context) error {
		if err := s.messages.Create(ctx, rec); err != nil {
			return fmt.Errorf("store message: %w", err)
		}
		if msg.Patient != nil && msg.Patient.ID != "" {
			if err := s.upsertPatient(ctx, msg); err != nil {
				return err
			}
			if err := s.reserveOrders(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	}

	if s.pool != nil {
		if err := db.WithTx(ctx, s.pool, apply); err != nil {
			return nil, err
		}
		return rec, nil
	}
	if err := apply(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) upsertPatient(ctx context.Context, msg *hl7.Message) error {
	p := &product.Patient{
		PID:        msg.Patient.ID,
		Name:       msg.Patient.Name,
		Gender:     msg.Patient.Gender,
		BloodGroup: msg.BloodGroup,
	}
	if dob, ok := hl7.ParseDate(msg.Patient.DateOfBirth); ok {
		p.DateOfBirth = &dob
	}
	if err := s.patients.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert patient %s: %w", p.PID, err)
	}
	return nil
}

func (s *Service) reserveOrders(ctx context.Context, msg *hl7.Message) error {
	pid := msg.Patient.ID
	for _, order := range msg.Orders {
		barcode := hl7.NormalizeCode(order.ProductCode)
		if barcode == "" {
			continue
		}
		// Replayed messages carry units we already know about.
		if _, err := s.products.FindForPatient(ctx, pid, barcode); err == nil {
			s.log.Debug().Str("barcode", barcode).Msg("ordered unit already registered")
			continue
		} else if !errors.Is(err, product.ErrNotFound) {
			return fmt.Errorf("check unit %s: %w", barcode, err)
		}

		unit := &product.BloodProduct{
			Barcode:     barcode,
			BloodGroup:  msg.BloodGroup,
			ProductType: order.ProductText,
			ExpiresAt:   s.now().Add(defaultShelfLife),
			PatientPID:  pid,
			Status:      product.StatusReserved,
		}
		if err := s.products.Create(ctx, unit); err != nil {
			return fmt.Errorf("reserve unit %s: %w", barcode, err)
		}
	}
	return nil
}

func (s *Service) GetMessage(ctx context.Context, id uuid.UUID) (*InboundMessage, error) {
	return s.messages.GetByID(ctx, id)
}

func (s *Service) ListMessages(ctx context.Context, limit, offset int) ([]*InboundMessage, int, error) {
	return s.messages.List(ctx, limit, offset)
}
