package dashboard

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medicare/hms/internal/platform/auth"
	"github.com/medicare/hms/internal/platform/gateway"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard/stats", h.Stats)
	api.POST("/dashboard/refresh", h.Refresh)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context(), auth.Token(c))
	if err != nil {
		if errors.Is(err, gateway.ErrNotAuthenticated) {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Refresh(c echo.Context) error {
	h.svc.Refresh()
	return c.NoContent(http.StatusNoContent)
}
