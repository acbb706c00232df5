package clinical

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
)

// Repository is append-only: records are created once and never changed.
type Repository interface {
	CreateConsultation(ctx context.Context, c *Consultation) error
	CreatePrescription(ctx context.Context, p *Prescription) error

	// Listings are newest first.
	ListConsultationsByPatient(ctx context.Context, patientID uuid.UUID) ([]Consultation, error)
	ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error)
	ListConsultationsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Consultation, error)
	ListPrescriptionsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Prescription, error)
}

// Registry is the part of the appointment store the clinical service reads.
type Registry interface {
	FindByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*appointment.Patient, error)
}
