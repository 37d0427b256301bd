package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

const appointmentsTable = "appointments"

var appointmentColumns = []interface{}{
	"id", "patient_id", "provider_id", "date", "time", "duration", "type", "status",
	"notes", "follow_up_needed", "follow_up_timeframe", "emergency_contact_notified",
	"created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) *AppointmentAdapter {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.AppointmentRepository = (*AppointmentAdapter)(nil)

func appointmentRecord(a *entities.Appointment) goqu.Record {
	return goqu.Record{
		"id":                         a.ID,
		"patient_id":                 a.PatientID,
		"provider_id":                a.ProviderID,
		"date":                       entities.CalendarDate(a.Date).Format("2006-01-02"),
		"time":                       a.Time,
		"duration":                   a.Duration,
		"type":                       a.Type,
		"status":                     a.Status,
		"notes":                      nullString(a.Notes),
		"follow_up_needed":           a.FollowUpNeeded,
		"follow_up_timeframe":        nullInt(a.FollowUpTimeframe),
		"emergency_contact_notified": a.EmergencyContactNotified,
		"created_at":                 a.CreatedAt,
		"updated_at":                 a.UpdatedAt,
	}
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	a := &entities.Appointment{}
	var notes sql.NullString
	var timeframe sql.NullInt64

	err := row.Scan(
		&a.ID, &a.PatientID, &a.ProviderID, &a.Date, &a.Time, &a.Duration, &a.Type, &a.Status,
		&notes, &a.FollowUpNeeded, &timeframe, &a.EmergencyContactNotified,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Date = entities.CalendarDate(a.Date)
	a.Notes = notes.String
	a.FollowUpTimeframe = intPtr(timeframe)
	return a, nil
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	if err := appointment.Validate(); err != nil {
		return err
	}

	query, args, err := a.db.Insert(appointmentsTable).Rows(appointmentRecord(appointment)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("appointment with id %s already exists", appointment.ID))
		}
		return apperrors.NewInternalError("failed to create appointment", err)
	}
	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.From(appointmentsTable).
		Select(appointmentColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// Update replaces a stored appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	if err := appointment.Validate(); err != nil {
		return err
	}

	record := appointmentRecord(appointment)
	delete(record, "id")
	delete(record, "created_at")

	query, args, err := a.db.Update(appointmentsTable).
		Set(record).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment", err)
	}
	return requireRow(result, appointment.ID)
}

// Delete removes an appointment
func (a *AppointmentAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(appointmentsTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete appointment", err)
	}
	return requireRow(result, id)
}

// DeleteByPatient removes every appointment of a patient
func (a *AppointmentAdapter) DeleteByPatient(ctx context.Context, patientID string) error {
	query, args, err := a.db.Delete(appointmentsTable).Where(goqu.Ex{"patient_id": patientID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to delete patient appointments", err)
	}
	return nil
}

// List retrieves appointments matching filter, ordered by date and time
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]entities.Appointment, error) {
	ds := a.db.From(appointmentsTable).Select(appointmentColumns...)

	if filter.PatientID != "" {
		ds = ds.Where(goqu.Ex{"patient_id": filter.PatientID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("date").Gte(filter.From.Format("2006-01-02")))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("date").Lte(filter.To.Format("2006-01-02")))
	}

	ds = ds.Order(goqu.C("date").Asc(), goqu.C("time").Asc(), goqu.C("id").Asc())

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
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := make([]entities.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, *appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}
	return appointments, nil
}

func requireRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return nil
}
