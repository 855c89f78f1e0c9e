package ingest

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hemovigil/hemovigil/internal/domain/product"
	"github.com/hemovigil/hemovigil/internal/platform/auth"
	"github.com/hemovigil/hemovigil/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the ingest endpoints. The receive endpoint sits on
// the public group: the integration engine authenticates at the network
// layer, not with staff tokens.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/messages", h.Receive)

	read := api.Group("", auth.RequireRole("admin"))
	read.GET("/messages", h.ListMessages)
	read.GET("/messages/:id", h.GetMessage)
}

type receiveResponse struct {
	ID         uuid.UUID `json:"id"`
	PatientPID string    `json:"patient_pid,omitempty"`
	OrderCount int       `json:"order_count"`
	BloodGroup string    `json:"blood_group,omitempty"`
}

// Receive accepts a raw HL7 payload as text/plain. Malformed segment
// content is accepted and logged; only an empty body is rejected.
func (h *Handler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	rec, err := h.svc.Ingest(c.Request().Context(), string(body))
	if errors.Is(err, ErrEmptyMessage) {
		return echo.NewHTTPError(http.StatusBadRequest, "empty message")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, receiveResponse{
		ID:         rec.ID,
		PatientPID: rec.PatientPID,
		OrderCount: rec.OrderCount,
		BloodGroup: rec.BloodGroup,
	})
}

func (h *Handler) GetMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.GetMessage(c.Request().Context(), id)
	if errors.Is(err, product.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "message not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMessages(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMessages(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
