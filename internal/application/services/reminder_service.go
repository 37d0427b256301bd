package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/providers"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/reminders"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ReminderView selects which derived reminders a listing returns
type ReminderView string

const (
	ReminderViewAll      ReminderView = "all"
	ReminderViewPending  ReminderView = "pending"
	ReminderViewSent     ReminderView = "sent"
	ReminderViewUpcoming ReminderView = "upcoming"
	ReminderViewDue      ReminderView = "due"
)

// ParseReminderView parses a view name; empty means all
func ParseReminderView(s string) (ReminderView, error) {
	switch v := ReminderView(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ReminderViewAll, nil
	case ReminderViewAll, ReminderViewPending, ReminderViewSent, ReminderViewUpcoming, ReminderViewDue:
		return v, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown reminder view %q", s))
	}
}

// ReminderQuery narrows a reminder listing
type ReminderQuery struct {
	PatientID string
	View      ReminderView
	// WindowDays bounds the upcoming view; zero or less uses the service default
	WindowDays int
}

// ReminderStats summarises the current reminder set for the dashboard
type ReminderStats struct {
	Total    int                           `json:"total"`
	Pending  int                           `json:"pending"`
	Sent     int                           `json:"sent"`
	Due      int                           `json:"due"`
	Upcoming int                           `json:"upcoming"`
	ByType   map[entities.ReminderType]int `json:"by_type"`
}

// ReminderService derives reminders from the clinic snapshot on every read
// and tracks which of them were sent.
type ReminderService struct {
	patients     repositories.PatientRepository
	appointments repositories.AppointmentRepository
	states       repositories.ReminderStateRepository
	deriver      *reminders.Deriver
	windowDays   int
	eventBus     providers.EventBus
	metrics      *observability.Metrics
	now          func() time.Time
}

// NewReminderService creates a new reminder service
func NewReminderService(
	patients repositories.PatientRepository,
	appointments repositories.AppointmentRepository,
	states repositories.ReminderStateRepository,
	windowDays int,
) *ReminderService {
	if windowDays <= 0 {
		windowDays = reminders.DefaultUpcomingWindowDays
	}
	return &ReminderService{
		patients:     patients,
		appointments: appointments,
		states:       states,
		deriver:      reminders.NewDeriver(),
		windowDays:   windowDays,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetEventBus sets the event bus for reminder_sent notifications
func (s *ReminderService) SetEventBus(eventBus providers.EventBus) {
	s.eventBus = eventBus
}

// SetMetrics enables reminder counters
func (s *ReminderService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// SetClock replaces the wall clock
func (s *ReminderService) SetClock(now func() time.Time) {
	s.now = now
}

// List derives the reminders for the current snapshot and returns the
// ones selected by q, ordered by schedule.
func (s *ReminderService) List(ctx context.Context, q ReminderQuery) ([]entities.Reminder, error) {
	ctx, span := observability.StartSpan(ctx, "ReminderService.List")
	defer span.End()

	now := s.now()
	all, err := s.derive(ctx, q.PatientID, now)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	var out []entities.Reminder
	switch q.View {
	case ReminderViewAll, "":
		out = all
	case ReminderViewPending:
		out = reminders.Pending(all)
	case ReminderViewSent:
		out = reminders.SentOnly(all)
	case ReminderViewUpcoming:
		out = reminders.Upcoming(all, now, s.window(q.WindowDays))
	case ReminderViewDue:
		out = reminders.Due(all, now)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown reminder view %q", q.View))
	}

	reminders.SortBySchedule(out)
	return out, nil
}

// MarkSent records that reminder id was sent. Emergency contact reminders
// also stamp the patient's emergency contact as notified, which starts the
// escalation cooldown. Marking an already sent reminder is a no-op.
func (s *ReminderService) MarkSent(ctx context.Context, id string, status entities.DeliveryStatus) (*entities.Reminder, error) {
	ctx, span := observability.StartSpan(ctx, "ReminderService.MarkSent")
	defer span.End()

	if status == "" {
		status = entities.DeliveryDelivered
	}
	switch status {
	case entities.DeliveryDelivered, entities.DeliveryFailed, entities.DeliveryPending:
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown delivery status %q", status))
	}

	now := s.now()
	all, err := s.derive(ctx, "", now)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	var reminder *entities.Reminder
	for i := range all {
		if all[i].ID == id {
			reminder = &all[i]
			break
		}
	}
	if reminder == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("reminder with id %s not found", id))
	}
	if reminder.Sent {
		return reminder, nil
	}

	changed, err := s.states.MarkSent(ctx, id, now, status)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if !changed {
		// another caller marked it between derivation and write
		return s.withStoredState(ctx, reminder)
	}
	if reminder.Type == entities.ReminderTypeEmergencyContact {
		if err := s.patients.SetEmergencyContactNotified(ctx, reminder.PatientID, now); err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
	}

	reminder.Sent = true
	reminder.SentAt = &now
	reminder.DeliveryStatus = status

	observability.RecordReminderSent(ctx, s.metrics, string(reminder.Type))
	log.Info().Str("reminder_id", id).Str("type", string(reminder.Type)).Str("patient_id", reminder.PatientID).Msg("Reminder marked sent")
	publishClinicEvent(ctx, s.eventBus, entities.NewClinicEvent(entities.ClinicEventReminderSent, id, reminder.PatientID, now))
	return reminder, nil
}

func (s *ReminderService) withStoredState(ctx context.Context, reminder *entities.Reminder) (*entities.Reminder, error) {
	states, err := s.states.GetByIDs(ctx, []string{reminder.ID})
	if err != nil {
		return nil, err
	}
	if st, ok := states[reminder.ID]; ok {
		st.Apply(reminder)
	}
	return reminder, nil
}

// Stats returns dashboard counts over every derived reminder
func (s *ReminderService) Stats(ctx context.Context) (*ReminderStats, error) {
	now := s.now()
	all, err := s.derive(ctx, "", now)
	if err != nil {
		return nil, err
	}

	stats := &ReminderStats{
		Total:    len(all),
		Sent:     len(reminders.SentOnly(all)),
		Due:      len(reminders.Due(all, now)),
		Upcoming: len(reminders.Upcoming(all, now, s.windowDays)),
		ByType:   make(map[entities.ReminderType]int),
	}
	stats.Pending = stats.Total - stats.Sent
	for _, r := range all {
		stats.ByType[r.Type]++
	}
	return stats, nil
}

func (s *ReminderService) window(days int) int {
	if days <= 0 {
		return s.windowDays
	}
	return days
}

// derive loads the snapshot, runs the rules and overlays sent state
func (s *ReminderService) derive(ctx context.Context, patientID string, now time.Time) ([]entities.Reminder, error) {
	var (
		patients     []entities.Patient
		appointments []entities.Appointment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patients, err = s.loadPatients(gctx, patientID)
		return err
	})
	g.Go(func() error {
		var err error
		appointments, err = s.appointments.List(gctx, repositories.AppointmentFilter{PatientID: patientID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	derived := s.deriver.Derive(appointments, patients, now)

	ids := make([]string, len(derived))
	for i := range derived {
		ids[i] = derived[i].ID
	}
	states, err := s.states.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range derived {
		if state, ok := states[derived[i].ID]; ok {
			state.Apply(&derived[i])
		}
	}

	counts := make(map[string]int)
	for _, r := range derived {
		counts[string(r.Type)]++
	}
	observability.RecordReminders(ctx, s.metrics, counts)

	return derived, nil
}

func (s *ReminderService) loadPatients(ctx context.Context, patientID string) ([]entities.Patient, error) {
	if patientID == "" {
		return s.patients.List(ctx, repositories.PatientFilter{})
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return []entities.Patient{*p}, nil
}
