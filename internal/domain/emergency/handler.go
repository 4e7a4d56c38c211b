package emergency

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medicare/hms/internal/platform/geo"
	"github.com/medicare/hms/internal/platform/notification"
	"github.com/medicare/hms/pkg/draft"
)

// Handler serves the public dispatch endpoint and the location resolver
// backing its pick-up field. Neither requires a session: an emergency
// request must never stall on authentication. A resolved position belongs
// to the caller who requested it; the client echoes it back in the
// dispatch's location field, the server never fills it in.
type Handler struct {
	composer *Composer
	resolver *geo.Resolver
	notifier notification.Notifier
}

func NewHandler(composer *Composer, resolver *geo.Resolver, notifier notification.Notifier) *Handler {
	return &Handler{composer: composer, resolver: resolver, notifier: notifier}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/emergency/dispatch", h.Dispatch)
	api.POST("/locations/resolve", h.ResolveLocation)
}

func (h *Handler) Dispatch(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	link, err := h.composer.Compose(req)
	if err != nil {
		if draft.IsValidation(err) {
			h.notifier.Error("emergency", "Please fill in all required fields")
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.notifier.Success("emergency", "Opening WhatsApp to send emergency request")
	return c.JSON(http.StatusOK, link)
}

type resolveRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ResolveLocation records a device position and refines it into an address
// when the geocoder can. The response always carries usable coordinates.
func (h *Handler) ResolveLocation(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	_, gen := h.resolver.Set(req.Lat, req.Lng)
	loc := h.resolver.Refine(c.Request().Context(), gen)
	return c.JSON(http.StatusOK, loc)
}
