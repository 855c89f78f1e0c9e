package product

import (
	"time"

	"github.com/google/uuid"
)

// Blood product lifecycle statuses. Transitions are monotonic:
// reserved -> collected -> transfused, with collected optional.
const (
	StatusReserved   = "reserved"
	StatusCollected  = "collected"
	StatusTransfused = "transfused"
)

// Patient maps to the patients table. PID is the hospital-assigned
// identifier carried in inbound messages and scanned from the wristband.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PID         string     `db:"pid" json:"pid"`
	Name        string     `db:"name" json:"name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      string     `db:"gender" json:"gender,omitempty"`
	BloodGroup  string     `db:"blood_group" json:"blood_group,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// BloodProduct maps to the blood_products table. Barcode is stored in
// canonical normalized form and is unique.
type BloodProduct struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Barcode     string    `db:"barcode" json:"barcode"`
	BloodGroup  string    `db:"blood_group" json:"blood_group,omitempty"`
	ProductType string    `db:"product_type" json:"product_type,omitempty"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	PatientPID  string    `db:"patient_pid" json:"patient_pid,omitempty"`
	OrderRef    string    `db:"order_ref" json:"order_ref,omitempty"`
	VolumeML    int       `db:"volume_ml" json:"volume_ml"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Available reports whether the product may still be transfused.
func (p *BloodProduct) Available() bool {
	return p.Status == StatusReserved || p.Status == StatusCollected
}

// Expired reports whether the product's expiry date has passed at the
// given instant.
func (p *BloodProduct) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && p.ExpiresAt.Before(now)
}
