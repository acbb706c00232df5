package clinical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

type ConsultationInput struct {
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	Summary       string
	FollowUp      string
}

type PrescriptionInput struct {
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	Medication    string
	Dosage        string
	Notes         string
}

// Records holds what was written against one appointment.
type Records struct {
	Consultations []Consultation
	Prescriptions []Prescription
}

type Service struct {
	repo     Repository
	registry Registry
	now      func() time.Time
}

func NewService(repo Repository, registry Registry, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, registry: registry, now: now}
}

// checkLink verifies the patient exists and that an optional appointment
// reference points at a booked appointment of that doctor and patient.
func (s *Service) checkLink(ctx context.Context, doctorID, patientID uuid.UUID, appointmentID *uuid.UUID) error {
	if doctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor is required", appointment.ErrValidation)
	}
	if patientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", appointment.ErrValidation)
	}
	if _, err := s.registry.GetPatientByID(ctx, patientID); err != nil {
		return err
	}
	if appointmentID == nil {
		return nil
	}

	appt, err := s.registry.FindByID(ctx, *appointmentID)
	if err != nil {
		return err
	}
	if appt.DoctorID != doctorID || appt.PatientID != patientID {
		return fmt.Errorf("%w: appointment does not belong to this doctor and patient", appointment.ErrValidation)
	}
	return nil
}

func (s *Service) RecordConsultation(ctx context.Context, in ConsultationInput) (*Consultation, error) {
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: summary is required", appointment.ErrValidation)
	}
	if err := s.checkLink(ctx, in.DoctorID, in.PatientID, in.AppointmentID); err != nil {
		return nil, classify("record consultation", err)
	}

	c := &Consultation{
		AppointmentID: in.AppointmentID,
		DoctorID:      in.DoctorID,
		PatientID:     in.PatientID,
		Summary:       summary,
		FollowUp:      strings.TrimSpace(in.FollowUp),
		Date:          clock.DateOf(s.now()),
	}
	if err := s.repo.CreateConsultation(ctx, c); err != nil {
		return nil, classify("record consultation", err)
	}
	return c, nil
}

func (s *Service) RecordPrescription(ctx context.Context, in PrescriptionInput) (*Prescription, error) {
	medication := strings.TrimSpace(in.Medication)
	if medication == "" {
		return nil, fmt.Errorf("%w: medication is required", appointment.ErrValidation)
	}
	if err := s.checkLink(ctx, in.DoctorID, in.PatientID, in.AppointmentID); err != nil {
		return nil, classify("record prescription", err)
	}

	p := &Prescription{
		AppointmentID: in.AppointmentID,
		DoctorID:      in.DoctorID,
		PatientID:     in.PatientID,
		Medication:    medication,
		Dosage:        strings.TrimSpace(in.Dosage),
		Notes:         strings.TrimSpace(in.Notes),
		DateIssued:    clock.DateOf(s.now()),
	}
	if err := s.repo.CreatePrescription(ctx, p); err != nil {
		return nil, classify("record prescription", err)
	}
	return p, nil
}

func (s *Service) ListConsultationsForPatient(ctx context.Context, patientID uuid.UUID) ([]Consultation, error) {
	cs, err := s.repo.ListConsultationsByPatient(ctx, patientID)
	if err != nil {
		return nil, classify("list consultations", err)
	}
	if cs == nil {
		cs = []Consultation{}
	}
	return cs, nil
}

func (s *Service) ListPrescriptionsForPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error) {
	ps, err := s.repo.ListPrescriptionsByPatient(ctx, patientID)
	if err != nil {
		return nil, classify("list prescriptions", err)
	}
	if ps == nil {
		ps = []Prescription{}
	}
	return ps, nil
}

// ListForAppointment returns the records linked to an appointment id. It
// works after the appointment has been completed.
func (s *Service) ListForAppointment(ctx context.Context, appointmentID uuid.UUID) (*Records, error) {
	cs, err := s.repo.ListConsultationsByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, classify("list appointment consultations", err)
	}
	ps, err := s.repo.ListPrescriptionsByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, classify("list appointment prescriptions", err)
	}
	if cs == nil {
		cs = []Consultation{}
	}
	if ps == nil {
		ps = []Prescription{}
	}
	return &Records{Consultations: cs, Prescriptions: ps}, nil
}

func classify(op string, err error) error {
	for _, target := range []error{
		appointment.ErrValidation,
		appointment.ErrPatientNotFound,
		appointment.ErrAppointmentNotFound,
		appointment.ErrStorageUnavailable,
	} {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, appointment.ErrStorageUnavailable, err)
}
