package geo

import (
	"context"
	"sync"
)

// Location is the resolver's current answer. Coordinates is always set once
// a position is known; Address is filled in only after a successful reverse
// geocode.
type Location struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Coordinates string  `json:"coordinates"`
	Address     string  `json:"address,omitempty"`
}

// Display returns the best human-readable form of the location.
func (l Location) Display() string {
	if l.Address != "" {
		return l.Address
	}
	return l.Coordinates
}

// Resolver tracks the most recently reported device position and refines it
// into an address. Each new position bumps a generation counter; a geocode
// answer for an older generation is discarded so a slow lookup can never
// overwrite a newer position. A failed device read never reaches the
// resolver, so the previous location stays intact.
type Resolver struct {
	mu       sync.Mutex
	geocoder Geocoder
	gen      uint64
	current  Location
	known    bool
}

func NewResolver(geocoder Geocoder) *Resolver {
	if geocoder == nil {
		geocoder = NopGeocoder{}
	}
	return &Resolver{geocoder: geocoder}
}

// Set records a new device position. The returned location carries the raw
// coordinates immediately; the generation token is passed to Refine.
func (r *Resolver) Set(lat, lng float64) (Location, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.current = Location{
		Lat:         lat,
		Lng:         lng,
		Coordinates: FormatCoordinates(lat, lng, ", "),
	}
	r.known = true
	return r.current, r.gen
}

// Refine reverse-geocodes the position behind gen and, if that position is
// still current, upgrades it with the resulting address. A stale generation
// or a provider failure leaves the location as it is; both return the
// current location.
func (r *Resolver) Refine(ctx context.Context, gen uint64) Location {
	r.mu.Lock()
	if gen != r.gen {
		loc := r.current
		r.mu.Unlock()
		return loc
	}
	lat, lng := r.current.Lat, r.current.Lng
	r.mu.Unlock()

	addr, err := r.geocoder.ReverseGeocode(ctx, lat, lng)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil && gen == r.gen {
		r.current.Address = addr
	}
	return r.current
}

// Current returns the latest location and whether one has been reported.
func (r *Resolver) Current() (Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.known
}
