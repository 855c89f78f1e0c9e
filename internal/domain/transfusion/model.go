package transfusion

import (
	"errors"
	"fmt"

	"github.com/hemovigil/hemovigil/internal/domain/product"
	"github.com/hemovigil/hemovigil/internal/platform/hl7"
)

// Validation failure reasons, checked in this order. The first failing
// check wins; later checks are not evaluated.
const (
	ReasonUnassociated  = "unassociated"
	ReasonExpired       = "expired"
	ReasonInvalidStatus = "invalid_status"
)

// ValidationResult is the outcome of checking a scanned unit against a
// patient. When Valid is false, Reason names the first failing check and
// Status carries the product's actual status for invalid_status.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
	Status  string `json:"status,omitempty"`
	Barcode string `json:"barcode"`

	Patient *product.Patient      `json:"patient,omitempty"`
	Product *product.BloodProduct `json:"product,omitempty"`
}

// ValidationError wraps an invalid result on the record path so the
// handler can return the failing check verbatim.
type ValidationError struct {
	Result *ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Result.Reason)
}

// ErrConflict is returned when another caller won the status transition.
var ErrConflict = errors.New("product already transfused")

// RecordResult reports a committed transfusion. Delivered and
// DeliveryError describe the downstream notification independently of the
// local transition, which is never rolled back.
type RecordResult struct {
	Product       *product.BloodProduct `json:"product"`
	Event         hl7.Transfusion       `json:"-"`
	Message       string                `json:"-"`
	Delivered     bool                  `json:"delivered"`
	DeliveryError string                `json:"delivery_error,omitempty"`
}
