package entities

import (
	"strings"
	"time"
)

// ContactMethod represents how a patient or contact is reached
type ContactMethod string

const (
	ContactEmail    ContactMethod = "email"
	ContactSMS      ContactMethod = "sms"
	ContactWhatsApp ContactMethod = "whatsapp"
	ContactCall     ContactMethod = "call"
)

// Valid reports whether m is a known contact method
func (m ContactMethod) Valid() bool {
	switch m {
	case ContactEmail, ContactSMS, ContactWhatsApp, ContactCall:
		return true
	}
	return false
}

// Gender of a patient as recorded at registration
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// EmergencyContact is the person escalations are directed at
type EmergencyContact struct {
	Name         string     `json:"name" db:"emergency_contact_name"`
	Phone        string     `json:"phone" db:"emergency_contact_phone"`
	Relationship string     `json:"relationship" db:"emergency_contact_relationship"`
	LastNotified *time.Time `json:"last_notified,omitempty" db:"emergency_contact_last_notified"`
}

// Patient represents a registered clinic patient
type Patient struct {
	ID                     string           `json:"id" db:"id"`
	FirstName              string           `json:"first_name" db:"first_name"`
	LastName               string           `json:"last_name" db:"last_name"`
	Email                  string           `json:"email" db:"email"`
	Phone                  string           `json:"phone" db:"phone"`
	DateOfBirth            string           `json:"date_of_birth" db:"date_of_birth"`
	Gender                 Gender           `json:"gender" db:"gender"`
	Address                string           `json:"address" db:"address"`
	MedicalRecordNumber    string           `json:"medical_record_number" db:"medical_record_number"`
	PreferredContactMethod ContactMethod    `json:"preferred_contact_method" db:"preferred_contact_method"`
	BloodType              string           `json:"blood_type,omitempty" db:"blood_type"`
	Allergies              string           `json:"allergies,omitempty" db:"allergies"`
	Medications            string           `json:"medications,omitempty" db:"medications"`
	ChronicConditions      string           `json:"chronic_conditions,omitempty" db:"chronic_conditions"`
	EmergencyContact       EmergencyContact `json:"emergency_contact"`
	MissedAppointments     int              `json:"missed_appointments" db:"missed_appointments"`
	Notes                  string           `json:"notes,omitempty" db:"notes"`
	CreatedAt              time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last"
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Validate checks the fields every stored patient must carry
func (p *Patient) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return invalid("patient id is required")
	case strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "":
		return invalid("patient first and last name are required")
	case p.MissedAppointments < 0:
		return invalid("missed appointments must not be negative")
	case p.PreferredContactMethod != "" && !p.PreferredContactMethod.Valid():
		return invalid("unknown preferred contact method " + string(p.PreferredContactMethod))
	}
	return nil
}

// NewPatient builds a patient with a clean missed-appointment history, stamped at now
func NewPatient(id, firstName, lastName string, now time.Time) (*Patient, error) {
	p := &Patient{
		ID:        id,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
