// Package dashboard aggregates the landing page's counters. Each counter is
// an independent count-only read: one failing query logs a warning and
// reports zero without disturbing the others.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicare/hms/internal/platform/gateway"
)

// Stats are the dashboard's three aggregate counters.
type Stats struct {
	TotalPatients      int `json:"total_patients"`
	ActiveAppointments int `json:"active_appointments"`
	PrescriptionsToday int `json:"prescriptions_today"`
}

type Service struct {
	gw     gateway.Gateway
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	cached *Stats
}

func NewService(gw gateway.Gateway, logger zerolog.Logger) *Service {
	return &Service{gw: gw, logger: logger, now: time.Now}
}

// Stats resolves the caller's session, then runs the three counts. Results
// are cached until Refresh is called; a new registration, prescription, or
// appointment invalidates the cache through the form's refresh callback.
func (s *Service) Stats(ctx context.Context, accessToken string) (Stats, error) {
	ctx = gateway.WithToken(ctx, accessToken)
	if _, err := s.gw.Session(ctx, accessToken); err != nil {
		return Stats{}, err
	}

	s.mu.Lock()
	if s.cached != nil {
		out := *s.cached
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	stats := Stats{
		TotalPatients:      s.count(ctx, "patients", gateway.SelectOptions{}),
		ActiveAppointments: s.count(ctx, "appointments", gateway.SelectOptions{
			Equals: map[string]string{"status": "scheduled"},
		}),
		PrescriptionsToday: s.count(ctx, "prescriptions", gateway.SelectOptions{
			AtLeast: map[string]string{"created_at": s.startOfToday()},
		}),
	}

	s.mu.Lock()
	s.cached = &stats
	s.mu.Unlock()
	return stats, nil
}

// Refresh drops the cached counters so the next Stats call re-aggregates.
func (s *Service) Refresh() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// count never fails the caller: a broken counter renders as zero.
func (s *Service) count(ctx context.Context, table string, opts gateway.SelectOptions) int {
	n, err := s.gw.Count(ctx, table, opts)
	if err != nil {
		s.logger.Warn().Err(err).Str("table", table).Msg("dashboard count failed")
		return 0
	}
	return n
}

// startOfToday is local midnight rendered as a UTC timestamp, matching how
// the store compares created_at values.
func (s *Service) startOfToday() string {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).UTC().Format(time.RFC3339)
}
