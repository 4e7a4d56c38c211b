package prescription

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/medicare/hms/internal/platform/gateway"
	"github.com/medicare/hms/internal/platform/notification"
)

const testBucket = "prescriptions"

func newFixture() (*Service, *gateway.Memory, *notification.Memory) {
	gw := gateway.NewMemory()
	gw.AddSession("tok", &gateway.Session{UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)})
	n := notification.NewMemory()
	return NewService(gw, testBucket, n), gw, n
}

func validFields() map[string]string {
	return map[string]string{
		"patient_id":  "pat-1",
		"doctor_name": "Dr. Rao",
		"medication":  "Amoxicillin",
		"dosage":      "500mg",
		"frequency":   "Twice daily",
		"duration":    "7 days",
	}
}

func TestCreate_WithoutAttachment(t *testing.T) {
	svc, gw, _ := newFixture()

	if err := svc.Create(context.Background(), "tok", validFields(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, _ := gw.Select(context.Background(), Table, gateway.SelectOptions{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 prescription, got %d", len(rows))
	}
	if rows[0]["image_url"] != nil {
		t.Errorf("expected null image_url without attachment, got %v", rows[0]["image_url"])
	}
	if rows[0]["user_id"] != "user-1" {
		t.Errorf("expected caller id, got %v", rows[0]["user_id"])
	}
}

func TestCreate_UploadsBeforeInsertAndStoresURL(t *testing.T) {
	svc, gw, _ := newFixture()
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	att := &Attachment{
		Filename:    "photo.png",
		ContentType: "image/png",
		Data:        strings.NewReader("img-bytes"),
	}
	if err := svc.Create(context.Background(), "tok", validFields(), att); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := "user-1/1700000000000.png"
	if data, ok := gw.Object(testBucket, key); !ok || string(data) != "img-bytes" {
		t.Errorf("expected object stored under %q", key)
	}

	rows, _ := gw.Select(context.Background(), Table, gateway.SelectOptions{})
	if rows[0]["image_url"] != "memory://"+testBucket+"/"+key {
		t.Errorf("expected public URL on the record, got %v", rows[0]["image_url"])
	}
}

func TestCreate_UploadFailureSuppressesInsert(t *testing.T) {
	gw := gateway.NewMemory()
	gw.AddSession("tok", &gateway.Session{UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)})
	n := notification.NewMemory()
	svc := NewService(gw, "", n) // no bucket configured

	att := &Attachment{Filename: "photo.png", Data: strings.NewReader("x")}
	err := svc.Create(context.Background(), "tok", validFields(), att)
	if !errors.Is(err, gateway.ErrBucketRequired) {
		t.Fatalf("expected ErrBucketRequired, got %v", err)
	}

	count, _ := gw.Count(context.Background(), Table, gateway.SelectOptions{})
	if count != 0 {
		t.Errorf("failed upload must suppress the insert, got %d rows", count)
	}

	last, _ := n.Last()
	if last.Severity != notification.SeverityError {
		t.Errorf("expected error feedback, got %+v", last)
	}
}

func TestCreate_MissingRequiredField(t *testing.T) {
	svc, gw, _ := newFixture()

	fields := validFields()
	delete(fields, "dosage")
	fields["dosage"] = ""

	if err := svc.Create(context.Background(), "tok", fields, nil); err == nil {
		t.Fatal("expected validation error")
	}
	count, _ := gw.Count(context.Background(), Table, gateway.SelectOptions{})
	if count != 0 {
		t.Errorf("validation failure must not insert, got %d rows", count)
	}
}

func TestPatientOptions_OrderedByName(t *testing.T) {
	svc, gw, _ := newFixture()
	ctx := context.Background()
	gw.Insert(ctx, patientsTable, gateway.Record{"name": "Zara", "contact_number": "2"}, "")
	gw.Insert(ctx, patientsTable, gateway.Record{"name": "Amit", "contact_number": "1"}, "")

	opts, err := svc.PatientOptions(ctx, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts) != 2 || opts[0].Name != "Amit" || opts[1].Name != "Zara" {
		t.Errorf("expected name order, got %+v", opts)
	}
}

func TestList_JoinsPatientNameAndFilters(t *testing.T) {
	svc, gw, _ := newFixture()
	ctx := context.Background()

	gw.Insert(ctx, patientsTable, gateway.Record{"id": "pat-1", "name": "Jane Doe"}, "")
	gw.Insert(ctx, Table, gateway.Record{
		"patient_id": "pat-1", "doctor_name": "Dr. Rao", "medication": "Amoxicillin",
		"created_at": "2025-03-01T00:00:00Z",
	}, "")
	gw.Insert(ctx, Table, gateway.Record{
		"patient_id": "pat-2", "doctor_name": "Dr. Iyer", "medication": "Ibuprofen",
		"created_at": "2025-03-02T00:00:00Z",
	}, "")

	list, err := svc.List(ctx, "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].Medication != "Ibuprofen" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[1].PatientName != "Jane Doe" {
		t.Errorf("expected joined patient name, got %q", list[1].PatientName)
	}

	// Search matches the joined patient name too.
	if got := Filter(list, "jane"); len(got) != 1 || got[0].Medication != "Amoxicillin" {
		t.Errorf("patient-name filter failed: %+v", got)
	}
	if got := Filter(list, "IBU"); len(got) != 1 {
		t.Errorf("medication filter failed: %+v", got)
	}
	if got := Filter(list, "rao"); len(got) != 1 {
		t.Errorf("doctor filter failed: %+v", got)
	}
}

func TestList_SessionRequired(t *testing.T) {
	svc, _, _ := newFixture()
	if _, err := svc.List(context.Background(), ""); !errors.Is(err, gateway.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestFilter_IdempotentAndMonotonic(t *testing.T) {
	list := []Prescription{
		{Medication: "Amoxicillin", DoctorName: "Dr. Rao"},
		{Medication: "Amlodipine", DoctorName: "Dr. Iyer"},
		{Medication: "Ibuprofen", DoctorName: "Dr. Rao"},
	}

	once := Filter(list, "am")
	twice := Filter(once, "am")
	if len(twice) != len(once) {
		t.Errorf("re-filtering with the same term changed the result: %d then %d", len(once), len(twice))
	}

	narrower := Filter(list, "amox")
	if len(narrower) > len(once) {
		t.Errorf("a longer term must never widen the result: %d > %d", len(narrower), len(once))
	}
}
