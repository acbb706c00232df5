package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

type Patient struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

type Doctor struct {
	ID            uuid.UUID
	FullName      string
	Email         string
	LicenseNumber string
	CreatedAt     time.Time
}

// Appointment is a committed booking. DoctorName is captured at booking time
// and is not updated when the doctor's name changes later.
type Appointment struct {
	ID         uuid.UUID
	DoctorID   uuid.UUID
	PatientID  uuid.UUID
	DoctorName string
	Date       clock.Date
	Time       clock.TimeOfDay
	Reason     *string
	CreatedAt  time.Time
}

// Slot is the (doctor, date, time) triple that holds at most one appointment.
type Slot struct {
	DoctorID uuid.UUID
	Date     clock.Date
	Time     clock.TimeOfDay
}

func (a *Appointment) Slot() Slot {
	return Slot{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
}

// DoctorRef identifies a doctor either by id or by email. Exactly one is set.
type DoctorRef struct {
	ID    uuid.UUID
	Email string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
