package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemovigil/hemovigil/internal/domain/product"
)

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*InboundMessage
}

func (r *fakeMessageRepo) Create(_ context.Context, m *InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*InboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, product.ErrNotFound
}

func (r *fakeMessageRepo) List(_ context.Context, limit, offset int) ([]*InboundMessage, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages, len(r.messages), nil
}

type fakePatientRepo struct {
	patients map[string]*product.Patient
}

func (r *fakePatientRepo) GetByPID(_ context.Context, pid string) (*product.Patient, error) {
	p, ok := r.patients[pid]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (r *fakePatientRepo) Upsert(_ context.Context, p *product.Patient) error {
	if existing, ok := r.patients[p.PID]; ok {
		if p.Name == "" {
			p.Name = existing.Name
		}
		if p.BloodGroup == "" {
			p.BloodGroup = existing.BloodGroup
		}
	}
	cp := *p
	r.patients[p.PID] = &cp
	return nil
}

func (r *fakePatientRepo) List(_ context.Context, limit, offset int) ([]*product.Patient, int, error) {
	return nil, 0, nil
}

type fakeProductRepo struct {
	products []*product.BloodProduct
}

func (r *fakeProductRepo) Create(_ context.Context, p *product.BloodProduct) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.products = append(r.products, &cp)
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id uuid.UUID) (*product.BloodProduct, error) {
	return nil, product.ErrNotFound
}

func (r *fakeProductRepo) FindForPatient(_ context.Context, pid, barcode string) (*product.BloodProduct, error) {
	for _, p := range r.products {
		if p.PatientPID == pid && p.Barcode == barcode {
			return p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (r *fakeProductRepo) ListByPatient(_ context.Context, pid string) ([]*product.BloodProduct, error) {
	return nil, nil
}

func (r *fakeProductRepo) List(_ context.Context, limit, offset int) ([]*product.BloodProduct, int, error) {
	return nil, 0, nil
}

func (r *fakeProductRepo) MarkCollected(_ context.Context, id uuid.UUID) error { return nil }

func (r *fakeProductRepo) CompareAndSetTransfused(_ context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

const orderMessage = "MSH|^~\\&|LAB|BLOODBANK|HEMOVIGIL|WARD3|20260115093000||OMB^O27|MSG0001|P|2.5.1\r" +
	"PID|1||4711^^^HOSP||Mustermann^Erika||19541203|F\r" +
	"BPO|1|||A-EK-006^Erythrozytenkonzentrat|1\r" +
	"NTE|1||Patientenblutgruppe: A+\r"

func newTestService() (*Service, *fakeMessageRepo, *fakePatientRepo, *fakeProductRepo) {
	messages := &fakeMessageRepo{}
	patients := &fakePatientRepo{patients: make(map[string]*product.Patient)}
	products := &fakeProductRepo{}
	svc := NewService(messages, patients, products, nil, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC) }
	return svc, messages, patients, products
}

func TestIngestOrderMessage(t *testing.T) {
	svc, messages, patients, products := newTestService()

	rec, err := svc.Ingest(context.Background(), orderMessage)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if rec.MessageType != "OMB^O27" || rec.SendingApp != "LAB" {
		t.Errorf("metadata = %+v", rec)
	}
	if rec.PatientPID != "4711" || rec.OrderCount != 1 || rec.BloodGroup != "A+" {
		t.Errorf("parse summary = %+v", rec)
	}
	if len(messages.messages) != 1 || messages.messages[0].Raw != orderMessage {
		t.Error("raw message was not stored verbatim")
	}

	p, ok := patients.patients["4711"]
	if !ok {
		t.Fatal("patient was not upserted")
	}
	if p.Name != "Mustermann^Erika" || p.BloodGroup != "A+" {
		t.Errorf("patient = %+v", p)
	}
	if p.DateOfBirth == nil || p.DateOfBirth.Year() != 1954 {
		t.Errorf("date of birth = %v", p.DateOfBirth)
	}

	if len(products.products) != 1 {
		t.Fatalf("%d products created, want 1", len(products.products))
	}
	unit := products.products[0]
	if unit.Barcode != "A-EK-006" || unit.Status != product.StatusReserved || unit.PatientPID != "4711" {
		t.Errorf("unit = %+v", unit)
	}
	if unit.ExpiresAt.Before(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("default expiry %v is too short", unit.ExpiresAt)
	}
}

func TestIngestReplayIsIdempotentForUnits(t *testing.T) {
	svc, messages, _, products := newTestService()

	for i := 0; i < 2; i++ {
		if _, err := svc.Ingest(context.Background(), orderMessage); err != nil {
			t.Fatalf("Ingest run %d: %v", i, err)
		}
	}
	if len(products.products) != 1 {
		t.Errorf("%d products after replay, want 1", len(products.products))
	}
	// Every delivery is logged, including replays.
	if len(messages.messages) != 2 {
		t.Errorf("%d stored messages, want 2", len(messages.messages))
	}
}

func TestIngestEmptyMessage(t *testing.T) {
	svc, _, _, _ := newTestService()
	for _, raw := range []string{"", "  \r\n "} {
		if _, err := svc.Ingest(context.Background(), raw); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Ingest(%q) error = %v, want ErrEmptyMessage", raw, err)
		}
	}
}

func TestIngestMalformedContentStillStored(t *testing.T) {
	svc, messages, patients, products := newTestService()

	rec, err := svc.Ingest(context.Background(), "GARBAGE|stuff\rMORE")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.PatientPID != "" || rec.OrderCount != 0 {
		t.Errorf("summary = %+v, want no patient and no orders", rec)
	}
	if len(messages.messages) != 1 {
		t.Error("malformed message was not stored")
	}
	if len(patients.patients) != 0 || len(products.products) != 0 {
		t.Error("malformed message touched the registry")
	}
}

func TestIngestMessageWithoutBloodGroupKeepsExisting(t *testing.T) {
	svc, _, patients, _ := newTestService()
	patients.patients["4711"] = &product.Patient{PID: "4711", BloodGroup: "A+"}

	raw := "MSH|^~\\&|LAB\rPID|1||4711||Mustermann^Erika\r"
	if _, err := svc.Ingest(context.Background(), raw); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got := patients.patients["4711"].BloodGroup; got != "A+" {
		t.Errorf("blood group = %q, want preserved A+", got)
	}
}
