package patient

import (
	"context"
	"errors"

	"github.com/medicare/hms/internal/platform/gateway"
	"github.com/medicare/hms/internal/platform/notification"
	"github.com/medicare/hms/pkg/draft"
)

const flow = "patients"

// Service owns the registration form and the patient list. Persistence and
// authentication belong to the remote data gateway; the service composes the
// submission pipeline and translates rows into Patient values.
type Service struct {
	gw       gateway.Gateway
	notifier notification.Notifier
	form     *draft.Controller
}

func NewService(gw gateway.Gateway, notifier notification.Notifier, opts ...draft.Option) *Service {
	return &Service{
		gw:       gw,
		notifier: notifier,
		form:     draft.NewController(Fields, Required, opts...),
	}
}

// Form exposes the registration form controller.
func (s *Service) Form() *draft.Controller {
	return s.form
}

// Register runs one registration attempt: the caller's session is resolved
// first, then the draft is inserted with the caller's id attached. On
// success the form resets and closes; on failure the draft survives for a
// retry.
func (s *Service) Register(ctx context.Context, accessToken string, fields map[string]string) error {
	ctx = gateway.WithToken(ctx, accessToken)
	s.form.Open()
	s.form.SetFields(fields)

	err := s.form.Submit(ctx, draft.Steps{
		Resolve: func(ctx context.Context) (string, error) {
			sess, err := s.gw.Session(ctx, accessToken)
			if err != nil {
				return "", err
			}
			return sess.UserID, nil
		},
		Insert: func(ctx context.Context, d draft.Draft, callerID, _ string, idempotencyKey string) error {
			rec := make(gateway.Record, len(Fields)+1)
			for _, f := range Fields {
				rec[f] = d.Get(f)
			}
			rec["user_id"] = callerID
			return s.gw.Insert(ctx, Table, rec, idempotencyKey)
		},
	})
	if err != nil {
		s.notifier.Error(flow, feedbackText(err, "Failed to register patient"))
		return err
	}
	s.notifier.Success(flow, "Patient registered successfully")
	return nil
}

// List fetches every patient, newest first. The search term is applied by
// the caller against the already-fetched set.
func (s *Service) List(ctx context.Context, accessToken string) ([]Patient, error) {
	ctx = gateway.WithToken(ctx, accessToken)
	if _, err := s.gw.Session(ctx, accessToken); err != nil {
		return nil, err
	}
	rows, err := s.gw.Select(ctx, Table, gateway.SelectOptions{
		OrderBy:    "created_at",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	patients := make([]Patient, len(rows))
	for i, rec := range rows {
		patients[i] = fromRecord(rec)
	}
	return patients, nil
}

// feedbackText prefers the store's own rejection message and falls back to
// the flow's generic failure text.
func feedbackText(err error, fallback string) string {
	var re *gateway.RemoteError
	if errors.As(err, &re) && re.Message == "" {
		return fallback
	}
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
