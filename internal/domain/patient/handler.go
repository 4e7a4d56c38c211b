package patient

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
	api.POST("/patients", h.Register)
	api.GET("/patients", h.List)
}

type registerRequest struct {
	Name             string `json:"name"`
	ContactNumber    string `json:"contact_number"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	DateOfBirth      string `json:"date_of_birth"`
	BloodGroup       string `json:"blood_group"`
	EmergencyContact string `json:"emergency_contact"`
}

func (r registerRequest) fields() map[string]string {
	return map[string]string{
		"name":              r.Name,
		"contact_number":    r.ContactNumber,
		"email":             r.Email,
		"address":           r.Address,
		"date_of_birth":     r.DateOfBirth,
		"blood_group":       r.BloodGroup,
		"emergency_contact": r.EmergencyContact,
	}
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Register(c.Request().Context(), auth.Token(c), req.fields()); err != nil {
		return submitError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "registered"})
}

func (h *Handler) List(c echo.Context) error {
	patients, err := h.svc.List(c.Request().Context(), auth.Token(c))
	if err != nil {
		return submitError(err)
	}
	filtered := Filter(patients, c.QueryParam("q"))
	pg := pagination.FromContext(c)
	lo, hi := pg.Slice(len(filtered))
	return c.JSON(http.StatusOK, pagination.NewResponse(filtered[lo:hi], len(filtered), pg.Limit, pg.Offset))
}

// submitError maps the submission pipeline's failure modes onto HTTP status
// codes.
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
