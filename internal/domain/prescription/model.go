package prescription

import (
	"strings"

	"github.com/medicare/hms/internal/platform/gateway"
)

const Table = "prescriptions"

// Fields enumerates the form's columns. image_url and user_id are attached
// by the submission pipeline, not typed by the user.
var Fields = []string{
	"patient_id",
	"doctor_name",
	"medication",
	"dosage",
	"frequency",
	"duration",
	"notes",
}

// Required lists the fields that must be non-empty before submission. Notes
// and the photo are optional.
var Required = []string{"patient_id", "doctor_name", "medication", "dosage", "frequency", "duration"}

type Prescription struct {
	ID         string `json:"id"`
	PatientID  string `json:"patient_id"`
	DoctorName string `json:"doctor_name"`
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	Duration   string `json:"duration"`
	Notes      string `json:"notes"`
	ImageURL   string `json:"image_url,omitempty"`
	UserID     string `json:"user_id"`
	CreatedAt  string `json:"created_at"`

	// PatientName is joined in from the patients table for display and
	// search; it is never written back.
	PatientName string `json:"patient_name,omitempty"`
}

func fromRecord(rec gateway.Record) Prescription {
	return Prescription{
		ID:         asString(rec["id"]),
		PatientID:  asString(rec["patient_id"]),
		DoctorName: asString(rec["doctor_name"]),
		Medication: asString(rec["medication"]),
		Dosage:     asString(rec["dosage"]),
		Frequency:  asString(rec["frequency"]),
		Duration:   asString(rec["duration"]),
		Notes:      asString(rec["notes"]),
		ImageURL:   asString(rec["image_url"]),
		UserID:     asString(rec["user_id"]),
		CreatedAt:  asString(rec["created_at"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// Matches reports whether the prescription satisfies a case-insensitive
// search term across medication, doctor name, and the joined patient name.
func (p Prescription) Matches(term string) bool {
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Medication), lower) ||
		strings.Contains(strings.ToLower(p.DoctorName), lower) ||
		strings.Contains(strings.ToLower(p.PatientName), lower)
}

// Filter returns the prescriptions matching term, preserving order.
func Filter(prescriptions []Prescription, term string) []Prescription {
	if term == "" {
		return prescriptions
	}
	out := make([]Prescription, 0, len(prescriptions))
	for _, p := range prescriptions {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}

// PatientOption is one entry of the patient picker shown by the form.
type PatientOption struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactNumber string `json:"contact_number"`
}
