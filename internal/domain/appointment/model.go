package appointment

import (
	"strings"

	"github.com/medicare/hms/internal/platform/gateway"
)

const Table = "appointments"

// Fields enumerates the form's inputs. Date and time are entered separately
// and combined into a single appointment_date timestamp at insert time; the
// store assigns the scheduled status.
var Fields = []string{
	"patient_id",
	"appointment_date",
	"appointment_time",
	"doctor_name",
	"department",
	"reason",
}

// Required lists the fields that must be non-empty before submission.
var Required = []string{"patient_id", "appointment_date", "appointment_time", "doctor_name", "department"}

// StatusScheduled is the status the store assigns to new appointments. The
// dashboard counts rows holding it.
const StatusScheduled = "scheduled"

type Appointment struct {
	ID              string `json:"id"`
	PatientID       string `json:"patient_id"`
	AppointmentDate string `json:"appointment_date"`
	DoctorName      string `json:"doctor_name"`
	Department      string `json:"department"`
	Reason          string `json:"reason"`
	Status          string `json:"status"`
	UserID          string `json:"user_id"`
	CreatedAt       string `json:"created_at"`

	// PatientName is joined in from the patients table for display and
	// search; it is never written back.
	PatientName string `json:"patient_name,omitempty"`
}

func fromRecord(rec gateway.Record) Appointment {
	return Appointment{
		ID:              asString(rec["id"]),
		PatientID:       asString(rec["patient_id"]),
		AppointmentDate: asString(rec["appointment_date"]),
		DoctorName:      asString(rec["doctor_name"]),
		Department:      asString(rec["department"]),
		Reason:          asString(rec["reason"]),
		Status:          asString(rec["status"]),
		UserID:          asString(rec["user_id"]),
		CreatedAt:       asString(rec["created_at"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// CombineDateTime joins a calendar date and a wall-clock time into the
// timestamp literal the store expects: "2025-03-10" + "14:30" becomes
// "2025-03-10T14:30:00". No time zone conversion is applied.
func CombineDateTime(date, clock string) string {
	return date + "T" + clock + ":00"
}

// Matches reports whether the appointment satisfies a case-insensitive
// search term across doctor name, department, and the joined patient name.
func (a Appointment) Matches(term string) bool {
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	return strings.Contains(strings.ToLower(a.DoctorName), lower) ||
		strings.Contains(strings.ToLower(a.Department), lower) ||
		strings.Contains(strings.ToLower(a.PatientName), lower)
}

// Filter returns the appointments matching term, preserving order.
func Filter(appointments []Appointment, term string) []Appointment {
	if term == "" {
		return appointments
	}
	out := make([]Appointment, 0, len(appointments))
	for _, a := range appointments {
		if a.Matches(term) {
			out = append(out, a)
		}
	}
	return out
}
