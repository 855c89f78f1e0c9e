package ingest

import (
	"time"

	"github.com/google/uuid"
)

// InboundMessage maps to the hl7_messages table: the raw message as
// received plus the parse metadata used for troubleshooting.
type InboundMessage struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Raw         string    `db:"raw" json:"raw"`
	MessageType string    `db:"message_type" json:"message_type,omitempty"`
	SendingApp  string    `db:"sending_app" json:"sending_app,omitempty"`
	PatientPID  string    `db:"patient_pid" json:"patient_pid,omitempty"`
	OrderCount  int       `db:"order_count" json:"order_count"`
	BloodGroup  string    `db:"blood_group" json:"blood_group,omitempty"`
	ReceivedAt  time.Time `db:"received_at" json:"received_at"`
}
