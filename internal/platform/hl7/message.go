// Package hl7 implements the subset of the HL7 v2 pipe-delimited grammar
// exchanged with the blood bank: decoding inbound order messages, encoding
// outbound transfusion confirmations, barcode normalization, and MLLP
// transport framing.
package hl7

import (
	"regexp"
	"strings"
	"time"
)

// Segment tags consumed from inbound messages. Anything else is retained
// in Message.Segments but not interpreted.
const (
	TagHeader      = "MSH"
	TagPatient     = "PID"
	TagOrder       = "BPO"
	TagNote        = "NTE"
	TagObservation = "OBX"
)

// Message is the decoded form of an inbound blood-bank message.
type Message struct {
	Header       Header
	Patient      *PatientInfo  // nil when no PID segment is present
	Orders       []Order       // BPO segments in source order
	Notes        []Note        // NTE segments in source order
	Observations []Observation // OBX segments in source order
	Segments     []Segment     // every segment, including unknown tags

	// BloodGroup is derived from the note text (first keyword match).
	// Empty when no note mentions a recognizable group. Best-effort only;
	// the authoritative group lives on the stored patient record.
	BloodGroup string
}

// Header holds the MSH fields the service consumes.
type Header struct {
	SendingApp   string // field 2 (field 1 is the encoding characters)
	SendingFac   string // field 3
	ReceivingApp string // field 4
	Timestamp    string // field 6, raw 8- or 14-digit form
	Type         string // field 8, e.g. "OMB^O27"
}

// PatientInfo holds the PID fields the service consumes.
type PatientInfo struct {
	SetID       string
	ID          string // PID-3, first component
	Name        string // PID-5, raw family^given composite
	DateOfBirth string // PID-7, raw 8-digit form
	Gender      string // PID-8
}

// Order holds one BPO segment.
type Order struct {
	ProductCode string // BPO-4, first component
	ProductText string // BPO-4, second component
	Quantity    string // BPO-5
}

// Note holds one NTE segment's free text.
type Note struct {
	Text string
}

// Observation retains an OBX segment's fields untouched.
type Observation struct {
	Fields []string
}

// Segment is one raw line of the message, split on the field separator.
// Fields holds everything after the tag, 0-indexed (Fields[0] is field 1).
type Segment struct {
	Tag    string
	Fields []string
}

// Field returns the 1-indexed field value, or "" when the segment is
// shorter than the requested position.
func (s Segment) Field(i int) string {
	if i < 1 || i > len(s.Fields) {
		return ""
	}
	return s.Fields[i-1]
}

// Component returns the 1-indexed `^` component of the 1-indexed field.
func (s Segment) Component(field, comp int) string {
	parts := strings.Split(s.Field(field), "^")
	if comp < 1 || comp > len(parts) {
		return ""
	}
	return parts[comp-1]
}

// Decode parses raw segment text into a Message. It returns nil only for
// empty or whitespace-only input; any other text decodes, with absent or
// malformed fields left empty rather than reported as errors. Decode is a
// pure function and safe for concurrent use.
func Decode(raw string) *Message {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	// Normalize line endings: CRLF and bare LF both become CR.
	text := strings.ReplaceAll(raw, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	msg := &Message{}

	for _, line := range strings.Split(text, "\r") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, "|")
		seg := Segment{Tag: parts[0], Fields: parts[1:]}
		msg.Segments = append(msg.Segments, seg)

		switch seg.Tag {
		case TagHeader:
			msg.Header = Header{
				SendingApp:   seg.Field(2),
				SendingFac:   seg.Field(3),
				ReceivingApp: seg.Field(4),
				Timestamp:    seg.Field(6),
				Type:         seg.Field(8),
			}
		case TagPatient:
			msg.Patient = &PatientInfo{
				SetID:       seg.Field(1),
				ID:          seg.Component(3, 1),
				Name:        seg.Field(5),
				DateOfBirth: seg.Field(7),
				Gender:      seg.Field(8),
			}
		case TagOrder:
			msg.Orders = append(msg.Orders, Order{
				ProductCode: seg.Component(4, 1),
				ProductText: seg.Component(4, 2),
				Quantity:    seg.Field(5),
			})
		case TagNote:
			// Free text is everything from field 3 onward; rejoin so
			// embedded separators survive.
			if len(seg.Fields) >= 3 {
				msg.Notes = append(msg.Notes, Note{Text: strings.Join(seg.Fields[2:], "|")})
			} else {
				msg.Notes = append(msg.Notes, Note{})
			}
		case TagObservation:
			msg.Observations = append(msg.Observations, Observation{Fields: seg.Fields})
		}
	}

	msg.BloodGroup = deriveBloodGroup(msg.Notes)

	return msg
}

// bloodGroupPattern matches AB/A/B/O groups with Rh sign. "0" is accepted
// where a German keyboard layout produced a zero for group O. The trailing
// class keeps product codes like "A-EK-006" from matching as "A-".
var bloodGroupPattern = regexp.MustCompile(`(?i)\b(AB|A|B|O|0)\s?([+-])(?:[^A-Za-z0-9]|$)`)

// deriveBloodGroup scans the concatenated note text for the first blood
// group keyword and returns it in canonical form ("" when nothing matched).
func deriveBloodGroup(notes []Note) string {
	var b strings.Builder
	for _, n := range notes {
		b.WriteString(n.Text)
		b.WriteString(" ")
	}

	m := bloodGroupPattern.FindStringSubmatch(b.String())
	if m == nil {
		return ""
	}

	group := strings.ToUpper(m[1])
	if group == "0" {
		group = "O"
	}
	return group + m[2]
}

// ParseDate parses the 8-digit HL7 date prefix of a timestamp field.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseTimestamp parses a 14-digit HL7 timestamp, falling back to the
// 8-digit date form.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 14 {
		if t, err := time.Parse("20060102150405", s[:14]); err == nil {
			return t, true
		}
	}
	return ParseDate(s)
}
