package appointment

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medicare/hms/internal/platform/auth"
	"github.com/medicare/hms/internal/platform/gateway"
	"github.com/medicare/hms/pkg/draft"
	"github.com/medicare/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.Schedule)
	api.GET("/appointments", h.List)
}

type scheduleRequest struct {
	PatientID       string `json:"patient_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	DoctorName      string `json:"doctor_name"`
	Department      string `json:"department"`
	Reason          string `json:"reason"`
}

func (r scheduleRequest) fields() map[string]string {
	return map[string]string{
		"patient_id":       r.PatientID,
		"appointment_date": r.AppointmentDate,
		"appointment_time": r.AppointmentTime,
		"doctor_name":      r.DoctorName,
		"department":       r.Department,
		"reason":           r.Reason,
	}
}

func (h *Handler) Schedule(c echo.Context) error {
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Schedule(c.Request().Context(), auth.Token(c), req.fields()); err != nil {
		return submitError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "scheduled"})
}

func (h *Handler) List(c echo.Context) error {
	appointments, err := h.svc.List(c.Request().Context(), auth.Token(c))
	if err != nil {
		return submitError(err)
	}
	filtered := Filter(appointments, c.QueryParam("q"))
	pg := pagination.FromContext(c)
	lo, hi := pg.Slice(len(filtered))
	return c.JSON(http.StatusOK, pagination.NewResponse(filtered[lo:hi], len(filtered), pg.Limit, pg.Offset))
}

func submitError(err error) error {
	switch {
	case draft.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrNotAuthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, draft.ErrSubmissionInFlight):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "remote data gateway timed out")
	}
	var re *gateway.RemoteError
	if errors.As(err, &re) {
		return echo.NewHTTPError(http.StatusBadGateway, re.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
