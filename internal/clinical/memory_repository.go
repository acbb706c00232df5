package clinical

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu            sync.RWMutex
	consultations []Consultation
	prescriptions []Prescription
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) CreateConsultation(_ context.Context, c *Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.consultations = append(r.consultations, *c)
	return nil
}

func (r *MemoryRepository) CreatePrescription(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	r.prescriptions = append(r.prescriptions, *p)
	return nil
}

func (r *MemoryRepository) ListConsultationsByPatient(_ context.Context, patientID uuid.UUID) ([]Consultation, error) {
	return r.filterConsultations(func(c Consultation) bool { return c.PatientID == patientID }), nil
}

func (r *MemoryRepository) ListPrescriptionsByPatient(_ context.Context, patientID uuid.UUID) ([]Prescription, error) {
	return r.filterPrescriptions(func(p Prescription) bool { return p.PatientID == patientID }), nil
}

func (r *MemoryRepository) ListConsultationsByAppointment(_ context.Context, appointmentID uuid.UUID) ([]Consultation, error) {
	return r.filterConsultations(func(c Consultation) bool {
		return c.AppointmentID != nil && *c.AppointmentID == appointmentID
	}), nil
}

func (r *MemoryRepository) ListPrescriptionsByAppointment(_ context.Context, appointmentID uuid.UUID) ([]Prescription, error) {
	return r.filterPrescriptions(func(p Prescription) bool {
		return p.AppointmentID != nil && *p.AppointmentID == appointmentID
	}), nil
}

// Records are appended in creation order, so walking backwards yields
// newest first.
func (r *MemoryRepository) filterConsultations(keep func(Consultation) bool) []Consultation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Consultation
	for i := len(r.consultations) - 1; i >= 0; i-- {
		if keep(r.consultations[i]) {
			result = append(result, r.consultations[i])
		}
	}
	return result
}

func (r *MemoryRepository) filterPrescriptions(keep func(Prescription) bool) []Prescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Prescription
	for i := len(r.prescriptions) - 1; i >= 0; i-- {
		if keep(r.prescriptions[i]) {
			result = append(result, r.prescriptions[i])
		}
	}
	return result
}
