package patient

import (
	"strings"

	"github.com/medicare/hms/internal/platform/gateway"
)

const Table = "patients"

// Fields enumerates the form's columns in insert order. The store assigns
// id, user_id, and created_at.
var Fields = []string{
	"name",
	"contact_number",
	"email",
	"address",
	"date_of_birth",
	"blood_group",
	"emergency_contact",
}

// Required lists the fields that must be non-empty before submission.
var Required = []string{"name", "contact_number"}

type Patient struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ContactNumber    string `json:"contact_number"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	DateOfBirth      string `json:"date_of_birth"`
	BloodGroup       string `json:"blood_group"`
	EmergencyContact string `json:"emergency_contact"`
	UserID           string `json:"user_id"`
	CreatedAt        string `json:"created_at"`
}

func fromRecord(rec gateway.Record) Patient {
	return Patient{
		ID:               asString(rec["id"]),
		Name:             asString(rec["name"]),
		ContactNumber:    asString(rec["contact_number"]),
		Email:            asString(rec["email"]),
		Address:          asString(rec["address"]),
		DateOfBirth:      asString(rec["date_of_birth"]),
		BloodGroup:       asString(rec["blood_group"]),
		EmergencyContact: asString(rec["emergency_contact"]),
		UserID:           asString(rec["user_id"]),
		CreatedAt:        asString(rec["created_at"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// Matches reports whether the patient satisfies a search term: the name and
// email match case-insensitively, the contact number by plain substring.
func (p Patient) Matches(term string) bool {
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), lower) ||
		strings.Contains(p.ContactNumber, term) ||
		strings.Contains(strings.ToLower(p.Email), lower)
}

// Filter returns the patients matching term, preserving order.
func Filter(patients []Patient, term string) []Patient {
	if term == "" {
		return patients
	}
	out := make([]Patient, 0, len(patients))
	for _, p := range patients {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}
