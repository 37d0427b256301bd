package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

const patientsTable = "patients"

var patientColumns = []interface{}{
	"id", "first_name", "last_name", "email", "phone", "date_of_birth", "gender",
	"address", "medical_record_number", "preferred_contact_method",
	"blood_type", "allergies", "medications", "chronic_conditions",
	"emergency_contact_name", "emergency_contact_phone", "emergency_contact_relationship",
	"emergency_contact_last_notified", "missed_appointments", "notes",
	"created_at", "updated_at",
}

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) *PatientAdapter {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.PatientRepository = (*PatientAdapter)(nil)

func patientRecord(p *entities.Patient) goqu.Record {
	return goqu.Record{
		"id":                              p.ID,
		"first_name":                      p.FirstName,
		"last_name":                       p.LastName,
		"email":                           p.Email,
		"phone":                           p.Phone,
		"date_of_birth":                   p.DateOfBirth,
		"gender":                          p.Gender,
		"address":                         p.Address,
		"medical_record_number":           p.MedicalRecordNumber,
		"preferred_contact_method":        p.PreferredContactMethod,
		"blood_type":                      nullString(p.BloodType),
		"allergies":                       nullString(p.Allergies),
		"medications":                     nullString(p.Medications),
		"chronic_conditions":              nullString(p.ChronicConditions),
		"emergency_contact_name":          p.EmergencyContact.Name,
		"emergency_contact_phone":         p.EmergencyContact.Phone,
		"emergency_contact_relationship":  p.EmergencyContact.Relationship,
		"emergency_contact_last_notified": nullTime(p.EmergencyContact.LastNotified),
		"missed_appointments":             p.MissedAppointments,
		"notes":                           nullString(p.Notes),
		"created_at":                      p.CreatedAt,
		"updated_at":                      p.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*entities.Patient, error) {
	p := &entities.Patient{}
	var bloodType, allergies, medications, chronic, notes sql.NullString
	var lastNotified sql.NullTime

	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth, &p.Gender,
		&p.Address, &p.MedicalRecordNumber, &p.PreferredContactMethod,
		&bloodType, &allergies, &medications, &chronic,
		&p.EmergencyContact.Name, &p.EmergencyContact.Phone, &p.EmergencyContact.Relationship,
		&lastNotified, &p.MissedAppointments, &notes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.BloodType = bloodType.String
	p.Allergies = allergies.String
	p.Medications = medications.String
	p.ChronicConditions = chronic.String
	p.Notes = notes.String
	p.EmergencyContact.LastNotified = timePtr(lastNotified)
	return p, nil
}

// Create creates a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}

	query, args, err := a.db.Insert(patientsTable).Rows(patientRecord(patient)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("patient with id %s already exists", patient.ID))
		}
		return apperrors.NewInternalError("failed to create patient", err)
	}
	return nil
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	query, args, err := a.db.From(patientsTable).
		Select(patientColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient, err := scanPatient(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}
	return patient, nil
}

// Update replaces a stored patient
func (a *PatientAdapter) Update(ctx context.Context, patient *entities.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}

	record := patientRecord(patient)
	delete(record, "id")
	delete(record, "created_at")

	query, args, err := a.db.Update(patientsTable).
		Set(record).
		Where(goqu.Ex{"id": patient.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execOne(ctx, query, args, patient.ID, "failed to update patient")
}

// Delete removes a patient
func (a *PatientAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(patientsTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	return a.execOne(ctx, query, args, id, "failed to delete patient")
}

// List retrieves patients ordered by name
func (a *PatientAdapter) List(ctx context.Context, filter repositories.PatientFilter) ([]entities.Patient, error) {
	ds := a.db.From(patientsTable).
		Select(patientColumns...).
		Order(goqu.C("last_name").Asc(), goqu.C("first_name").Asc(), goqu.C("id").Asc())

	limit, offset := page(filter.Limit, filter.Offset)
	if limit > 0 {
		ds = ds.Limit(limit)
	}
	if offset > 0 {
		ds = ds.Offset(offset)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list patients", err)
	}
	defer rows.Close()

	patients := make([]entities.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan patient", err)
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate patients", err)
	}
	return patients, nil
}

// IncrementMissedAppointments bumps the no-show counter in place
func (a *PatientAdapter) IncrementMissedAppointments(ctx context.Context, id string) error {
	query, args, err := a.db.Update(patientsTable).
		Set(goqu.Record{
			"missed_appointments": goqu.L("missed_appointments + 1"),
			"updated_at":          time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	return a.execOne(ctx, query, args, id, "failed to increment missed appointments")
}

// SetEmergencyContactNotified records the last escalation call
func (a *PatientAdapter) SetEmergencyContactNotified(ctx context.Context, id string, at time.Time) error {
	query, args, err := a.db.Update(patientsTable).
		Set(goqu.Record{
			"emergency_contact_last_notified": at,
			"updated_at":                      at,
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	return a.execOne(ctx, query, args, id, "failed to record emergency contact notification")
}

func (a *PatientAdapter) execOne(ctx context.Context, query string, args []interface{}, id, failure string) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(failure, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	return nil
}
