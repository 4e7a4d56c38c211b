package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemorySessionUnknownToken(t *testing.T) {
	m := NewMemory()
	_, err := m.Session(context.Background(), "nope")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestMemorySessionExpired(t *testing.T) {
	m := NewMemory()
	m.AddSession("tok", &Session{UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)})
	_, err := m.Session(context.Background(), "tok")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for expired session, got %v", err)
	}
}

func TestMemoryInsertAssignsIDAndCreatedAt(t *testing.T) {
	m := NewMemory()
	err := m.Insert(context.Background(), "patients", Record{"name": "Jane"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := m.Select(context.Background(), "patients", SelectOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["id"] == nil || rows[0]["created_at"] == nil {
		t.Error("expected id and created_at to be assigned")
	}
}

func TestMemoryInsertIdempotencyKeyDeduplicates(t *testing.T) {
	m := NewMemory()
	rec := Record{"name": "Jane"}
	if err := m.Insert(context.Background(), "patients", rec, "key-1"); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(context.Background(), "patients", rec, "key-1"); err != nil {
		t.Fatal(err)
	}
	n, _ := m.Count(context.Background(), "patients", SelectOptions{})
	if n != 1 {
		t.Errorf("replayed idempotency key must not insert twice, got %d rows", n)
	}
}

func TestMemorySelectOrderAndFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Insert(ctx, "appointments", Record{"doctor_name": "B", "status": "scheduled", "appointment_date": "2025-03-11T09:00:00"}, "")
	m.Insert(ctx, "appointments", Record{"doctor_name": "A", "status": "completed", "appointment_date": "2025-03-10T09:00:00"}, "")
	m.Insert(ctx, "appointments", Record{"doctor_name": "C", "status": "scheduled", "appointment_date": "2025-03-12T09:00:00"}, "")

	rows, err := m.Select(ctx, "appointments", SelectOptions{
		OrderBy: "appointment_date",
		Equals:  map[string]string{"status": "scheduled"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 scheduled rows, got %d", len(rows))
	}
	if rows[0]["doctor_name"] != "B" || rows[1]["doctor_name"] != "C" {
		t.Errorf("expected ascending date order B,C got %v,%v", rows[0]["doctor_name"], rows[1]["doctor_name"])
	}
}

func TestMemoryCountAtLeast(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Insert(ctx, "prescriptions", Record{"medication": "old", "created_at": "2025-03-09T23:59:59Z"}, "")
	m.Insert(ctx, "prescriptions", Record{"medication": "new", "created_at": "2025-03-10T08:00:00Z"}, "")

	n, err := m.Count(ctx, "prescriptions", SelectOptions{
		AtLeast: map[string]string{"created_at": "2025-03-10T00:00:00Z"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 prescription on/after the cutoff, got %d", n)
	}
}

func TestMemoryDefaults(t *testing.T) {
	m := NewMemory()
	m.SetDefaults("appointments", Record{"status": "scheduled"})
	ctx := context.Background()
	m.Insert(ctx, "appointments", Record{"doctor_name": "Dr. A"}, "")

	rows, _ := m.Select(ctx, "appointments", SelectOptions{})
	if rows[0]["status"] != "scheduled" {
		t.Errorf("expected server default status scheduled, got %v", rows[0]["status"])
	}
}

func TestMemoryUpload(t *testing.T) {
	m := NewMemory()
	url, err := m.Upload(context.Background(), "prescriptions", "u1/123.png", "image/png", strings.NewReader("img-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "memory://prescriptions/u1/123.png" {
		t.Errorf("unexpected public url %q", url)
	}
	data, ok := m.Object("prescriptions", "u1/123.png")
	if !ok || string(data) != "img-bytes" {
		t.Error("uploaded object not stored")
	}
}

func TestMemoryUploadRequiresBucket(t *testing.T) {
	m := NewMemory()
	_, err := m.Upload(context.Background(), "", "k", "", strings.NewReader("x"))
	if !errors.Is(err, ErrBucketRequired) {
		t.Fatalf("expected ErrBucketRequired, got %v", err)
	}
}
