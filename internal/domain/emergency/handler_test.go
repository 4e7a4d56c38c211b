package emergency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medicare/hms/internal/platform/geo"
	"github.com/medicare/hms/internal/platform/notification"
)

type staticGeocoder struct{ addr string }

func (s staticGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return s.addr, nil
}

func newServer(requireLocation bool, geocoder geo.Geocoder) (*echo.Echo, *geo.Resolver, *notification.Memory) {
	resolver := geo.NewResolver(geocoder)
	n := notification.NewMemory()
	e := echo.New()
	api := e.Group("/api/v1")
	NewHandler(NewComposer("", requireLocation), resolver, n).RegisterRoutes(api)
	return e, resolver, n
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestDispatch_NoSessionNeeded(t *testing.T) {
	e, _, n := newServer(false, nil)

	rec := postJSON(e, "/api/v1/emergency/dispatch",
		`{"name":"Jane Doe","contact":"9999999999","location":"MG Road"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var link DispatchLink
	if err := json.Unmarshal(rec.Body.Bytes(), &link); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !strings.Contains(link.URL, "Jane%20Doe") {
		t.Errorf("expected encoded name in URL: %s", link.URL)
	}

	last, ok := n.Last()
	if !ok || last.Severity != notification.SeveritySuccess {
		t.Errorf("expected success feedback, got %+v", last)
	}
}

func TestDispatch_MissingRequiredFields(t *testing.T) {
	e, _, n := newServer(false, nil)

	rec := postJSON(e, "/api/v1/emergency/dispatch", `{"name":"Jane Doe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	last, _ := n.Last()
	if last.Text != "Please fill in all required fields" {
		t.Errorf("unexpected feedback %q", last.Text)
	}
}

func TestDispatch_StrictRejectsEmptyLocationDespiteResolvedPosition(t *testing.T) {
	e, resolver, _ := newServer(true, staticGeocoder{addr: "Some Other Caller's House"})

	// Another caller resolves their position first. Their address must never
	// leak into this dispatch.
	_, gen := resolver.Set(12.97, 77.59)
	resolver.Refine(context.Background(), gen)

	rec := postJSON(e, "/api/v1/emergency/dispatch",
		`{"name":"Jane","contact":"1","location":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a location, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDispatch_EmptyLocationFallsBackToPlaceholderNotResolverState(t *testing.T) {
	e, resolver, _ := newServer(false, staticGeocoder{addr: "MG Road, Bengaluru"})

	_, gen := resolver.Set(12.97, 77.59)
	resolver.Refine(context.Background(), gen)

	rec := postJSON(e, "/api/v1/emergency/dispatch", `{"name":"Jane","contact":"1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var link DispatchLink
	json.Unmarshal(rec.Body.Bytes(), &link)
	if !strings.Contains(link.Message, "Pick-up Location: Location%20not%20specified") {
		t.Errorf("expected placeholder location:\n%s", link.Message)
	}
	if strings.Contains(link.Message, "MG%20Road") {
		t.Errorf("resolver state must not leak into the message:\n%s", link.Message)
	}
}

func TestDispatch_UsesProvidedLocation(t *testing.T) {
	e, _, _ := newServer(false, staticGeocoder{addr: "Resolved Address"})

	rec := postJSON(e, "/api/v1/emergency/dispatch",
		`{"name":"Jane","contact":"1","location":"Typed Address"}`)

	var link DispatchLink
	json.Unmarshal(rec.Body.Bytes(), &link)
	if !strings.Contains(link.Message, "Typed%20Address") {
		t.Errorf("expected the given location in the message:\n%s", link.Message)
	}
}

func TestResolveLocation_ReturnsCoordinatesAndAddress(t *testing.T) {
	e, _, _ := newServer(false, staticGeocoder{addr: "MG Road"})

	rec := postJSON(e, "/api/v1/locations/resolve", `{"lat":12.97,"lng":77.59}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var loc geo.Location
	if err := json.Unmarshal(rec.Body.Bytes(), &loc); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if loc.Coordinates != "12.97, 77.59" {
		t.Errorf("unexpected coordinates %q", loc.Coordinates)
	}
	if loc.Address != "MG Road" {
		t.Errorf("unexpected address %q", loc.Address)
	}
}
