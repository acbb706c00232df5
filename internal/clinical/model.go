package clinical

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

// Consultation notes written by a doctor. AppointmentID may be nil, and may
// point at an appointment that has since been completed and removed.
type Consultation struct {
	ID            uuid.UUID
	AppointmentID *uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	Summary       string
	FollowUp      string
	Date          clock.Date
	CreatedAt     time.Time
}

type Prescription struct {
	ID            uuid.UUID
	AppointmentID *uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	Medication    string
	Dosage        string
	Notes         string
	DateIssued    clock.Date
	CreatedAt     time.Time
}
