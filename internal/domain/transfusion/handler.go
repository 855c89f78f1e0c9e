package transfusion

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hemovigil/hemovigil/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole("nurse", "physician")

	guarded := api.Group("", clinical)
	guarded.POST("/scan", h.Scan)
	guarded.POST("/transfusions", h.Record)
}

type scanRequest struct {
	PatientPID string `json:"patient_pid"`
	Barcode    string `json:"barcode"`
}

type recordRequest struct {
	PatientPID string `json:"patient_pid"`
	Barcode    string `json:"barcode"`
	VolumeML   *int   `json:"volume_ml,omitempty"`
}

// Scan is the read-only bedside check. It answers with the validation
// outcome in the body; an invalid unit is a 200, not an error.
func (h *Handler) Scan(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientPID == "" || req.Barcode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_pid and barcode are required")
	}

	result, err := h.svc.Validate(c.Request().Context(), req.PatientPID, req.Barcode)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// Record commits the transfusion. Validation failures come back as 422
// with the failing reason, a lost transition race as 409. A delivery
// failure is still a 201: the local record is committed and the response
// body carries the delivery outcome.
func (h *Handler) Record(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientPID == "" || req.Barcode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_pid and barcode are required")
	}

	staffID := auth.UserIDFromContext(c.Request().Context())

	result, err := h.svc.Record(c.Request().Context(), req.PatientPID, req.Barcode, staffID, req.VolumeML)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, verr.Result)
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "product already transfused")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}
