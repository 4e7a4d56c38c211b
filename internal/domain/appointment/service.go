package appointment

import (
	"context"
	"errors"

	"github.com/medicare/hms/internal/platform/gateway"
	"github.com/medicare/hms/internal/platform/notification"
	"github.com/medicare/hms/pkg/draft"
)

const (
	flow          = "appointments"
	patientsTable = "patients"
)

// Service owns the scheduling form and the appointment list.
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

// Form exposes the scheduling form controller.
func (s *Service) Form() *draft.Controller {
	return s.form
}

// Schedule runs one scheduling attempt. The separate date and time inputs
// are combined into one timestamp only at insert time, so a failed attempt
// keeps both inputs editable.
func (s *Service) Schedule(ctx context.Context, accessToken string, fields map[string]string) error {
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
			rec := gateway.Record{
				"patient_id":       d.Get("patient_id"),
				"appointment_date": CombineDateTime(d.Get("appointment_date"), d.Get("appointment_time")),
				"doctor_name":      d.Get("doctor_name"),
				"department":       d.Get("department"),
				"reason":           d.Get("reason"),
				"user_id":          callerID,
			}
			return s.gw.Insert(ctx, Table, rec, idempotencyKey)
		},
	})
	if err != nil {
		s.notifier.Error(flow, feedbackText(err, "Failed to schedule appointment"))
		return err
	}
	s.notifier.Success(flow, "Appointment scheduled successfully")
	return nil
}

// List fetches every appointment, soonest first, with patient names joined
// in for display and search.
func (s *Service) List(ctx context.Context, accessToken string) ([]Appointment, error) {
	ctx = gateway.WithToken(ctx, accessToken)
	if _, err := s.gw.Session(ctx, accessToken); err != nil {
		return nil, err
	}
	rows, err := s.gw.Select(ctx, Table, gateway.SelectOptions{OrderBy: "appointment_date"})
	if err != nil {
		return nil, err
	}

	names, err := s.patientNames(ctx)
	if err != nil {
		return nil, err
	}

	appointments := make([]Appointment, len(rows))
	for i, rec := range rows {
		a := fromRecord(rec)
		a.PatientName = names[a.PatientID]
		appointments[i] = a
	}
	return appointments, nil
}

func (s *Service) patientNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.gw.Select(ctx, patientsTable, gateway.SelectOptions{})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(rows))
	for _, rec := range rows {
		names[asString(rec["id"])] = asString(rec["name"])
	}
	return names, nil
}

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
