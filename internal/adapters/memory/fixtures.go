package memory

import (
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
)

// SeedFixtures returns the demo clinic dataset with appointment dates relative to now
func SeedFixtures(now time.Time) ([]entities.Patient, []entities.Appointment) {
	today := entities.CalendarDate(now)
	day := func(offset int) time.Time { return today.AddDate(0, 0, offset) }
	since := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}

	patients := []entities.Patient{
		{
			ID: "pat-1", FirstName: "Michael", LastName: "Brown",
			Email: "michael.brown@example.com", Phone: "555-111-2222",
			DateOfBirth: "1985-06-15", Gender: entities.GenderMale,
			Address: "123 Main St, Anytown, USA", MedicalRecordNumber: "MRN10001",
			PreferredContactMethod: entities.ContactEmail,
			EmergencyContact: entities.EmergencyContact{
				Name: "Laura Brown", Phone: "555-111-9999", Relationship: "Spouse",
			},
			Notes:     "Patient has history of hypertension.",
			CreatedAt: since("2023-01-15"), UpdatedAt: since("2023-08-21"),
		},
		{
			ID: "pat-2", FirstName: "Jennifer", LastName: "Davis",
			Email: "jennifer.davis@example.com", Phone: "555-333-4444",
			DateOfBirth: "1992-09-22", Gender: entities.GenderFemale,
			Address: "456 Oak Ave, Somewhere, USA", MedicalRecordNumber: "MRN10002",
			PreferredContactMethod: entities.ContactSMS,
			Allergies:              "Penicillin",
			EmergencyContact: entities.EmergencyContact{
				Name: "Mark Davis", Phone: "555-333-0000", Relationship: "Brother",
			},
			Notes:     "Allergic to penicillin.",
			CreatedAt: since("2023-02-10"), UpdatedAt: since("2023-09-05"),
		},
		{
			ID: "pat-3", FirstName: "Robert", LastName: "Wilson",
			Email: "robert.wilson@example.com", Phone: "555-555-6666",
			DateOfBirth: "1975-03-18", Gender: entities.GenderMale,
			Address: "789 Pine Rd, Elsewhere, USA", MedicalRecordNumber: "MRN10003",
			PreferredContactMethod: entities.ContactWhatsApp,
			ChronicConditions:      "Type 2 diabetes",
			EmergencyContact: entities.EmergencyContact{
				Name: "Anna Wilson", Phone: "555-555-1212", Relationship: "Daughter",
			},
			Notes:     "Diabetic, requires regular follow-ups.",
			CreatedAt: since("2023-03-05"), UpdatedAt: since("2023-08-30"),
		},
		{
			ID: "pat-4", FirstName: "Elizabeth", LastName: "Taylor",
			Email: "elizabeth.taylor@example.com", Phone: "555-777-8888",
			DateOfBirth: "1988-11-30", Gender: entities.GenderFemale,
			Address: "101 Cedar St, Nowhereville, USA", MedicalRecordNumber: "MRN10004",
			PreferredContactMethod: entities.ContactCall,
			MissedAppointments:     2,
			EmergencyContact: entities.EmergencyContact{
				Name: "James Taylor", Phone: "555-777-0101", Relationship: "Father",
			},
			CreatedAt: since("2023-04-20"), UpdatedAt: since("2023-09-10"),
		},
		{
			ID: "pat-5", FirstName: "William", LastName: "Jones",
			Email: "william.jones@example.com", Phone: "555-999-0000",
			DateOfBirth: "1965-07-05", Gender: entities.GenderMale,
			Address: "202 Elm Blvd, Anystate, USA", MedicalRecordNumber: "MRN10005",
			PreferredContactMethod: entities.ContactEmail,
			ChronicConditions:      "Heart condition",
			EmergencyContact: entities.EmergencyContact{
				Name: "Mary Jones", Phone: "555-999-1111", Relationship: "Spouse",
			},
			Notes:     "Heart condition, monthly check-ups required.",
			CreatedAt: since("2023-05-12"), UpdatedAt: since("2023-09-15"),
		},
	}

	appointments := []entities.Appointment{
		{ID: "appt-1", PatientID: "pat-1", ProviderID: "prov-1", Date: day(2), Time: "09:00", Duration: 30,
			Type: entities.AppointmentTypeFollowUp, Status: entities.AppointmentStatusScheduled,
			Notes: "Blood pressure check", FollowUpNeeded: true, FollowUpTimeframe: entities.Days(30),
			CreatedAt: day(-10), UpdatedAt: day(-10)},
		{ID: "appt-2", PatientID: "pat-2", ProviderID: "prov-2", Date: day(3), Time: "14:30", Duration: 45,
			Type: entities.AppointmentTypeInitial, Status: entities.AppointmentStatusScheduled,
			Notes: "New patient consultation", FollowUpNeeded: true, FollowUpTimeframe: entities.Days(14),
			CreatedAt: day(-7), UpdatedAt: day(-7)},
		{ID: "appt-3", PatientID: "pat-3", ProviderID: "prov-1", Date: day(1), Time: "11:15", Duration: 30,
			Type: entities.AppointmentTypeFollowUp, Status: entities.AppointmentStatusScheduled,
			Notes: "Diabetes management check", FollowUpNeeded: true, FollowUpTimeframe: entities.Days(90),
			CreatedAt: day(-14), UpdatedAt: day(-14)},
		{ID: "appt-4", PatientID: "pat-4", ProviderID: "prov-2", Date: day(5), Time: "15:00", Duration: 60,
			Type: entities.AppointmentTypeRoutine, Status: entities.AppointmentStatusScheduled,
			CreatedAt: day(-5), UpdatedAt: day(-5)},
		{ID: "appt-5", PatientID: "pat-5", ProviderID: "prov-1", Date: day(4), Time: "10:45", Duration: 30,
			Type: entities.AppointmentTypeFollowUp, Status: entities.AppointmentStatusScheduled,
			Notes: "Monthly heart check-up", FollowUpNeeded: true, FollowUpTimeframe: entities.Days(30),
			CreatedAt: day(-8), UpdatedAt: day(-8)},
		{ID: "appt-6", PatientID: "pat-1", ProviderID: "prov-1", Date: day(-5), Time: "13:30", Duration: 30,
			Type: entities.AppointmentTypeFollowUp, Status: entities.AppointmentStatusCompleted,
			Notes: "Patient responded well to medication", FollowUpNeeded: true, FollowUpTimeframe: entities.Days(60),
			CreatedAt: day(-20), UpdatedAt: day(-5)},
		{ID: "appt-7", PatientID: "pat-3", ProviderID: "prov-1", Date: day(-2), Time: "09:15", Duration: 45,
			Type: entities.AppointmentTypeEmergency, Status: entities.AppointmentStatusCompleted,
			Notes: "Blood sugar spike, adjusted insulin dosage", FollowUpNeeded: true, FollowUpTimeframe: entities.Days(7),
			CreatedAt: day(-2), UpdatedAt: day(-2)},
		{ID: "appt-8", PatientID: "pat-2", ProviderID: "prov-3", Date: day(7), Time: "11:00", Duration: 30,
			Type: entities.AppointmentTypeFollowUp, Status: entities.AppointmentStatusScheduled,
			CreatedAt: day(-3), UpdatedAt: day(-3)},
		{ID: "appt-9", PatientID: "pat-5", ProviderID: "prov-1", Date: day(10), Time: "14:00", Duration: 45,
			Type: entities.AppointmentTypeFollowUp, Status: entities.AppointmentStatusScheduled,
			Notes: "Cardiac stress test", FollowUpNeeded: true, FollowUpTimeframe: entities.Days(30),
			CreatedAt: day(-6), UpdatedAt: day(-6)},
		{ID: "appt-10", PatientID: "pat-4", ProviderID: "prov-2", Date: day(-10), Time: "16:30", Duration: 30,
			Type: entities.AppointmentTypeInitial, Status: entities.AppointmentStatusNoShow,
			FollowUpNeeded: true, FollowUpTimeframe: entities.Days(14),
			CreatedAt: day(-25), UpdatedAt: day(-10)},
	}

	return patients, appointments
}
