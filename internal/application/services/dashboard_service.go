package services

import (
	"context"
	"math"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
	"golang.org/x/sync/errgroup"
)

const (
	// acquisitionMonths is how many calendar months the new-patient series covers
	acquisitionMonths = 6
	// dueSoonWindow bounds the "reminders due soon" counter
	dueSoonWindow = 24 * time.Hour
)

// MonthCount is the number of patients created in one calendar month
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// FollowUpCompliance measures how often completed visits that asked for a
// follow-up got a later follow-up appointment for the same patient.
type FollowUpCompliance struct {
	Needed    int `json:"needed"`
	Scheduled int `json:"scheduled"`
	Missed    int `json:"missed"`
	// Rate is Scheduled/Needed as a rounded percentage, 0 when nothing is needed
	Rate   int                              `json:"rate"`
	ByType map[entities.AppointmentType]int `json:"rate_by_type"`
}

// DashboardStats are the clinic overview counters
type DashboardStats struct {
	GeneratedAt          time.Time                      `json:"generated_at"`
	TotalPatients        int                            `json:"total_patients"`
	TodayAppointments    int                            `json:"today_appointments"`
	UpcomingAppointments int                            `json:"upcoming_appointments"`
	MissedAppointments   int                            `json:"missed_appointments"`
	RemindersDueSoon     int                            `json:"reminders_due_24h"`
	ContactMethods       map[entities.ContactMethod]int `json:"contact_methods"`
	NewPatientsByMonth   []MonthCount                   `json:"new_patients_by_month"`
	FollowUpCompliance   FollowUpCompliance             `json:"follow_up_compliance"`
}

// DashboardService computes the clinic overview from the store and the derived reminders
type DashboardService struct {
	patients     repositories.PatientRepository
	appointments repositories.AppointmentRepository
	reminders    *ReminderService
	now          func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(patients repositories.PatientRepository, appointments repositories.AppointmentRepository, reminderService *ReminderService) *DashboardService {
	return &DashboardService{
		patients:     patients,
		appointments: appointments,
		reminders:    reminderService,
		now:          time.Now,
	}
}

// SetClock overrides the time source
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}

// Stats computes the dashboard counters as of now
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	ctx, span := observability.StartSpan(ctx, "DashboardService.Stats")
	defer span.End()

	var (
		patients     []entities.Patient
		appointments []entities.Appointment
		pending      []entities.Reminder
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patients, err = s.patients.List(gctx, repositories.PatientFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		appointments, err = s.appointments.List(gctx, repositories.AppointmentFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.reminders.List(gctx, ReminderQuery{View: ReminderViewPending})
		return err
	})
	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	now := s.now().UTC()
	today := entities.CalendarDate(now)
	stats := &DashboardStats{
		GeneratedAt:        now,
		TotalPatients:      len(patients),
		ContactMethods:     contactMethodCounts(patients),
		NewPatientsByMonth: newPatientsByMonth(patients, now),
		FollowUpCompliance: followUpCompliance(appointments),
	}

	for i := range appointments {
		a := &appointments[i]
		day := entities.CalendarDate(a.Date)
		if day.Equal(today) {
			stats.TodayAppointments++
		}
		if a.Status == entities.AppointmentStatusScheduled && !day.Before(today) {
			stats.UpcomingAppointments++
		}
		if a.Status == entities.AppointmentStatusNoShow {
			stats.MissedAppointments++
		}
	}

	horizon := now.Add(dueSoonWindow)
	for i := range pending {
		if !pending[i].ScheduledFor.After(horizon) {
			stats.RemindersDueSoon++
		}
	}
	return stats, nil
}

func contactMethodCounts(patients []entities.Patient) map[entities.ContactMethod]int {
	counts := map[entities.ContactMethod]int{
		entities.ContactEmail:    0,
		entities.ContactSMS:      0,
		entities.ContactWhatsApp: 0,
		entities.ContactCall:     0,
	}
	for i := range patients {
		if m := patients[i].PreferredContactMethod; m != "" {
			counts[m]++
		}
	}
	return counts
}

// newPatientsByMonth buckets creation times into the current month and the
// months before it, oldest first
func newPatientsByMonth(patients []entities.Patient, now time.Time) []MonthCount {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]MonthCount, acquisitionMonths)
	for i := range out {
		start := current.AddDate(0, i-(acquisitionMonths-1), 0)
		end := start.AddDate(0, 1, 0)
		count := 0
		for j := range patients {
			created := patients[j].CreatedAt.UTC()
			if !created.Before(start) && created.Before(end) {
				count++
			}
		}
		out[i] = MonthCount{Month: start.Format("2006-01"), Count: count}
	}
	return out
}

func followUpCompliance(appointments []entities.Appointment) FollowUpCompliance {
	types := []entities.AppointmentType{
		entities.AppointmentTypeInitial,
		entities.AppointmentTypeFollowUp,
		entities.AppointmentTypeRoutine,
		entities.AppointmentTypeEmergency,
	}
	needed := make(map[entities.AppointmentType]int, len(types))
	scheduled := make(map[entities.AppointmentType]int, len(types))

	var c FollowUpCompliance
	for i := range appointments {
		a := &appointments[i]
		if a.Status != entities.AppointmentStatusCompleted || !a.FollowUpNeeded {
			continue
		}
		c.Needed++
		needed[a.Type]++
		if hasLaterFollowUp(appointments, a) {
			c.Scheduled++
			scheduled[a.Type]++
		}
	}
	c.Missed = c.Needed - c.Scheduled
	c.Rate = percent(c.Scheduled, c.Needed)

	c.ByType = make(map[entities.AppointmentType]int, len(types))
	for _, t := range types {
		c.ByType[t] = percent(scheduled[t], needed[t])
	}
	return c
}

func hasLaterFollowUp(appointments []entities.Appointment, visit *entities.Appointment) bool {
	for i := range appointments {
		a := &appointments[i]
		if a.PatientID == visit.PatientID && a.Type == entities.AppointmentTypeFollowUp && a.Date.After(visit.Date) {
			return true
		}
	}
	return false
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(whole)))
}
