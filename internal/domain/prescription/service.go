package prescription

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/medicare/hms/internal/platform/gateway"
	"github.com/medicare/hms/internal/platform/notification"
	"github.com/medicare/hms/pkg/draft"
)

const (
	flow          = "prescriptions"
	patientsTable = "patients"
)

// Attachment is an optional photo accompanying a prescription.
type Attachment struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// Service owns the prescription form. A submission uploads the attached
// photo first, keyed under the caller's id, and only then inserts the
// record carrying the photo's public URL.
type Service struct {
	gw       gateway.Gateway
	bucket   string
	notifier notification.Notifier
	form     *draft.Controller
	now      func() time.Time
}

func NewService(gw gateway.Gateway, bucket string, notifier notification.Notifier, opts ...draft.Option) *Service {
	return &Service{
		gw:       gw,
		bucket:   bucket,
		notifier: notifier,
		form:     draft.NewController(Fields, Required, opts...),
		now:      time.Now,
	}
}

// Form exposes the prescription form controller.
func (s *Service) Form() *draft.Controller {
	return s.form
}

// objectKey namespaces an upload under the caller's id with a timestamp
// name, keeping the original file extension.
func (s *Service) objectKey(callerID, filename string) string {
	return callerID + "/" + strconv.FormatInt(s.now().UnixMilli(), 10) + path.Ext(filename)
}

// Create runs one prescription submission. attachment may be nil.
func (s *Service) Create(ctx context.Context, accessToken string, fields map[string]string, attachment *Attachment) error {
	ctx = gateway.WithToken(ctx, accessToken)
	s.form.Open()
	s.form.SetFields(fields)

	steps := draft.Steps{
		Resolve: func(ctx context.Context) (string, error) {
			sess, err := s.gw.Session(ctx, accessToken)
			if err != nil {
				return "", err
			}
			return sess.UserID, nil
		},
		Insert: func(ctx context.Context, d draft.Draft, callerID, uploadRef string, idempotencyKey string) error {
			rec := make(gateway.Record, len(Fields)+2)
			for _, f := range Fields {
				rec[f] = d.Get(f)
			}
			rec["user_id"] = callerID
			if uploadRef != "" {
				rec["image_url"] = uploadRef
			} else {
				rec["image_url"] = nil
			}
			return s.gw.Insert(ctx, Table, rec, idempotencyKey)
		},
	}
	if attachment != nil {
		steps.Upload = func(ctx context.Context, callerID string) (string, error) {
			return s.gw.Upload(ctx, s.bucket, s.objectKey(callerID, attachment.Filename), attachment.ContentType, attachment.Data)
		}
	}

	if err := s.form.Submit(ctx, steps); err != nil {
		s.notifier.Error(flow, feedbackText(err, "Failed to create prescription"))
		return err
	}
	s.notifier.Success(flow, "Prescription created successfully")
	return nil
}

// PatientOptions returns the patient picker entries, ordered by name.
func (s *Service) PatientOptions(ctx context.Context, accessToken string) ([]PatientOption, error) {
	ctx = gateway.WithToken(ctx, accessToken)
	if _, err := s.gw.Session(ctx, accessToken); err != nil {
		return nil, err
	}
	rows, err := s.gw.Select(ctx, patientsTable, gateway.SelectOptions{OrderBy: "name"})
	if err != nil {
		return nil, err
	}
	opts := make([]PatientOption, len(rows))
	for i, rec := range rows {
		opts[i] = PatientOption{
			ID:            asString(rec["id"]),
			Name:          asString(rec["name"]),
			ContactNumber: asString(rec["contact_number"]),
		}
	}
	return opts, nil
}

// List fetches every prescription, newest first, with each row's patient
// name joined in so the search term can match it.
func (s *Service) List(ctx context.Context, accessToken string) ([]Prescription, error) {
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

	names, err := s.patientNames(ctx)
	if err != nil {
		return nil, err
	}

	prescriptions := make([]Prescription, len(rows))
	for i, rec := range rows {
		p := fromRecord(rec)
		p.PatientName = names[p.PatientID]
		prescriptions[i] = p
	}
	return prescriptions, nil
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
