package prescription

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
	api.POST("/prescriptions", h.Create)
	api.GET("/prescriptions", h.List)
	api.GET("/patients/options", h.PatientOptions)
}

// Create accepts a multipart form: the prescription fields as form values
// plus an optional "image" file part.
func (h *Handler) Create(c echo.Context) error {
	fields := make(map[string]string, len(Fields))
	for _, f := range Fields {
		fields[f] = c.FormValue(f)
	}

	var attachment *Attachment
	if fh, err := c.FormFile("image"); err == nil && fh != nil {
		src, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable image attachment")
		}
		defer src.Close()
		attachment = &Attachment{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        src,
		}
	}

	if err := h.svc.Create(c.Request().Context(), auth.Token(c), fields, attachment); err != nil {
		return submitError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "created"})
}

func (h *Handler) List(c echo.Context) error {
	prescriptions, err := h.svc.List(c.Request().Context(), auth.Token(c))
	if err != nil {
		return submitError(err)
	}
	filtered := Filter(prescriptions, c.QueryParam("q"))
	pg := pagination.FromContext(c)
	lo, hi := pg.Slice(len(filtered))
	return c.JSON(http.StatusOK, pagination.NewResponse(filtered[lo:hi], len(filtered), pg.Limit, pg.Offset))
}

func (h *Handler) PatientOptions(c echo.Context) error {
	opts, err := h.svc.PatientOptions(c.Request().Context(), auth.Token(c))
	if err != nil {
		return submitError(err)
	}
	return c.JSON(http.StatusOK, opts)
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
