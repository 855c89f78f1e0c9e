package transfusion

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hemovigil/hemovigil/internal/domain/product"
)

func doJSON(t *testing.T, h echo.HandlerFunc, path, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, h(c)
}

func TestScanHandler(t *testing.T) {
	h := NewHandler(newTestService(newFakeRegistry(reservedUnit()), &fakeSender{}))

	rec, err := doJSON(t, h.Scan, "/api/v1/scan", `{"patient_pid":"4711","barcode":"a-ek-006"}`)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !result.Valid {
		t.Errorf("result = %+v, want valid", result)
	}
	if result.Barcode != "A-EK-006" {
		t.Errorf("barcode = %q, want canonical form", result.Barcode)
	}
}

func TestScanHandlerInvalidUnitIsOK(t *testing.T) {
	h := NewHandler(newTestService(newFakeRegistry(), &fakeSender{}))

	rec, err := doJSON(t, h.Scan, "/api/v1/scan", `{"patient_pid":"4711","barcode":"B-EK-999"}`)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if result.Valid || result.Reason != ReasonUnassociated {
		t.Errorf("result = %+v, want unassociated", result)
	}
}

func TestScanHandlerMissingFields(t *testing.T) {
	h := NewHandler(newTestService(newFakeRegistry(), &fakeSender{}))

	_, err := doJSON(t, h.Scan, "/api/v1/scan", `{"barcode":"A-EK-006"}`)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("error = %v, want 400", err)
	}
}

func TestRecordHandler(t *testing.T) {
	h := NewHandler(newTestService(newFakeRegistry(reservedUnit()), &fakeSender{}))

	rec, err := doJSON(t, h.Record, "/api/v1/transfusions", `{"patient_pid":"4711","barcode":"A-EK-006","volume_ml":250}`)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var result RecordResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !result.Delivered {
		t.Error("Delivered = false, want true")
	}
	if result.Product.Status != product.StatusTransfused {
		t.Errorf("product status = %q", result.Product.Status)
	}
}

func TestRecordHandlerStatusCodes(t *testing.T) {
	expired := reservedUnit()
	expired.ExpiresAt = testNow.Add(-1)

	transfused := reservedUnit()
	transfused.Status = product.StatusTransfused

	tests := []struct {
		name string
		unit *product.BloodProduct
		want int
	}{
		{"expired unit", expired, http.StatusUnprocessableEntity},
		{"already transfused", transfused, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(newTestService(newFakeRegistry(tt.unit), &fakeSender{}))
			_, err := doJSON(t, h.Record, "/api/v1/transfusions", `{"patient_pid":"4711","barcode":"A-EK-006"}`)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != tt.want {
				t.Errorf("error = %v, want %d", err, tt.want)
			}
		})
	}
}
