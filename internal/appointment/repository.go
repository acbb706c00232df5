package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

// SlotReader is the read-only view of the store the Scheduler needs.
type SlotReader interface {
	// FindByDoctorAndDate returns the doctor's appointments on date ordered
	// by time ascending.
	FindByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date clock.Date) ([]Appointment, error)
	ExistsSlot(ctx context.Context, slot Slot) (bool, error)
}

// Directory resolves doctor and patient identities.
type Directory interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

// Repository contains all store interactions needed by the service.
type Repository interface {
	Directory
	SlotReader

	// Insert commits a; the uniqueness check and the write are atomic.
	// It fails with ErrDuplicateSlot when the slot is taken. A
	// APPOINTMENT_BOOKED event is recorded with the row.
	Insert(ctx context.Context, a *Appointment) error

	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindByPatient returns appointments most recent first by (date, time).
	FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)

	// FindByDoctor returns appointments ordered by (date, time) ascending.
	FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)

	// DeleteByID removes the appointment and records APPOINTMENT_COMPLETED.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	ListEvents(ctx context.Context, appointmentID uuid.UUID) ([]EventLog, error)
}
