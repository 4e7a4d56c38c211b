// Package geo resolves device coordinates into human-readable addresses.
// Coordinates always come first: a submission never waits on the geocoding
// provider, and a provider failure degrades the location to raw coordinates.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNoAddress is returned when the provider has no address for the
// coordinates, or when geocoding is not configured at all.
var ErrNoAddress = errors.New("no address for coordinates")

// Geocoder turns a coordinate pair into a formatted address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

const defaultMapsBaseURL = "https://maps.googleapis.com"

// GoogleGeocoder calls the Google Maps reverse-geocoding endpoint.
type GoogleGeocoder struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewGoogleGeocoder creates a geocoder using the given API key. baseURL
// overrides the Google endpoint for tests; pass "" for the real one.
func NewGoogleGeocoder(apiKey, baseURL string) *GoogleGeocoder {
	if baseURL == "" {
		baseURL = defaultMapsBaseURL
	}
	return &GoogleGeocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("latlng", FormatCoordinates(lat, lng, ","))
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/maps/api/geocode/json?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoding endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding geocode response: %w", err)
	}
	if len(body.Results) == 0 || body.Results[0].FormattedAddress == "" {
		return "", ErrNoAddress
	}
	return body.Results[0].FormattedAddress, nil
}

// NopGeocoder is used when no API key is configured. Every lookup reports
// ErrNoAddress so callers fall back to coordinates.
type NopGeocoder struct{}

func (NopGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return "", ErrNoAddress
}

// FormatCoordinates renders a coordinate pair with minimal digits, the way
// a browser would stringify the numbers.
func FormatCoordinates(lat, lng float64, sep string) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + sep + strconv.FormatFloat(lng, 'f', -1, 64)
}
