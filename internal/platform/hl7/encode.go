package hl7

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// SegmentTerminator ends every outbound segment, including the last one.
const SegmentTerminator = "\r"

// Endpoints identifies the sending and receiving systems on outbound
// messages (MSH fields 2-5).
type Endpoints struct {
	SendingApp   string
	SendingFac   string
	ReceivingApp string
	ReceivingFac string
}

// Transfusion carries everything the outbound confirmation message needs.
// Zero values render as empty fields; positions are never omitted.
type Transfusion struct {
	Endpoints Endpoints

	PatientID         string
	PatientName       string // family^given composite as stored
	PatientDOB        time.Time
	PatientGender     string
	PatientBloodGroup string

	OrderRef          string
	ProductBarcode    string
	ProductText       string
	ProductBloodGroup string
	VolumeML          int
	StaffID           string
}

// Field counts per outbound segment. Short values pad with empty fields so
// the receiver always sees the declared positions.
const (
	mshFieldCount = 11
	pidFieldCount = 8
	orcFieldCount = 9
	bpoFieldCount = 5
	nteFieldCount = 3
	btxFieldCount = 11
)

var controlSeq atomic.Uint64

// nextControlID returns a message control id unique within this process:
// time-derived with an atomic sequence suffix so two events encoded in the
// same second still get distinct ids.
func nextControlID(now time.Time) string {
	return fmt.Sprintf("HV%s%04d", now.UTC().Format("20060102150405"), controlSeq.Add(1)%10000)
}

// EncodeTransfusion renders the outbound transfusion-confirmation message:
// exactly seven segments (MSH, PID, ORC, BPO, NTE, NTE, BTX) joined with CR
// and ending with a trailing CR. Deterministic for a fixed event and clock
// reading apart from the control id sequence.
func EncodeTransfusion(t Transfusion, now time.Time) string {
	ts := FormatTimestamp(now)

	msh := segment(TagHeader, mshFieldCount, map[int]string{
		1:  `^~\&`,
		2:  t.Endpoints.SendingApp,
		3:  t.Endpoints.SendingFac,
		4:  t.Endpoints.ReceivingApp,
		5:  t.Endpoints.ReceivingFac,
		6:  ts,
		8:  "BTS^O31",
		9:  nextControlID(now),
		10: "P",
		11: "2.5.1",
	})

	pid := segment(TagPatient, pidFieldCount, map[int]string{
		1: "1",
		3: t.PatientID,
		5: t.PatientName,
		7: FormatDate(t.PatientDOB),
		8: t.PatientGender,
	})

	orc := segment("ORC", orcFieldCount, map[int]string{
		1: "SC",
		2: t.OrderRef,
		9: ts,
	})

	bpo := segment(TagOrder, bpoFieldCount, map[int]string{
		4: t.ProductBarcode + "^" + t.ProductText,
		5: "1",
	})

	nte1 := segment(TagNote, nteFieldCount, map[int]string{
		1: "1",
		3: "Patientenblutgruppe: " + t.PatientBloodGroup,
	})

	nte2 := segment(TagNote, nteFieldCount, map[int]string{
		1: "2",
		3: "Konserve: " + t.ProductBarcode,
	})

	volume := ""
	if t.VolumeML > 0 {
		volume = strconv.Itoa(t.VolumeML)
	}
	btx := segment("BTX", btxFieldCount, map[int]string{
		1:  "1",
		2:  t.ProductBarcode,
		3:  t.ProductBarcode + "^" + t.ProductText,
		4:  t.ProductBloodGroup + "^" + t.ProductBloodGroup,
		5:  "1",
		6:  volume,
		7:  "ml",
		8:  "CM",
		9:  "TX",
		10: ts,
		11: t.StaffID,
	})

	segments := []string{msh, pid, orc, bpo, nte1, nte2, btx}
	return strings.Join(segments, SegmentTerminator) + SegmentTerminator
}

// segment renders a tag plus exactly n pipe-delimited fields, populated
// from the 1-indexed position map.
func segment(tag string, n int, fields map[int]string) string {
	parts := make([]string, n+1)
	parts[0] = tag
	for pos, val := range fields {
		if pos >= 1 && pos <= n {
			parts[pos] = val
		}
	}
	return strings.Join(parts, "|")
}

// FormatTimestamp renders the zero-padded 14-digit HL7 timestamp form.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("20060102150405")
}

// FormatDate renders the 8-digit date prefix of the timestamp form.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("20060102")
}
