package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
	redisclient "github.com/hackgods/medical-appointment-scheduler/internal/redis"
)

// ServiceConfig holds the tunables of the lifecycle manager.
type ServiceConfig struct {
	// StoreTimeout bounds the store work of one call. Zero means no bound.
	StoreTimeout   time.Duration
	PastDatePolicy PastDatePolicy
	Now            func() time.Time
}

// BookRequest is a patient's booking request. Date and Time are optional.
type BookRequest struct {
	PatientID uuid.UUID
	Doctor    DoctorRef
	Date      *clock.Date
	Time      *clock.TimeOfDay
	Reason    string
}

// Booking is a committed appointment plus the proposal that produced it.
type Booking struct {
	Appointment *Appointment
	Proposal    Proposal
}

// Service is the appointment lifecycle manager: it books through the
// Scheduler, commits through the Repository and completes by deletion.
type Service struct {
	repo      Repository
	locker    redisclient.Locker
	scheduler *Scheduler
	timeout   time.Duration
}

func NewService(repo Repository, locker redisclient.Locker, cfg ServiceConfig) *Service {
	if locker == nil {
		locker = redisclient.NewNopLocker()
	}
	return &Service{
		repo:      repo,
		locker:    locker,
		scheduler: NewScheduler(repo, cfg.PastDatePolicy, cfg.Now),
		timeout:   cfg.StoreTimeout,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ResolveDoctor looks a doctor up by id, or by email when no id is given.
func (s *Service) ResolveDoctor(ctx context.Context, ref DoctorRef) (*Doctor, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		d   *Doctor
		err error
	)
	switch {
	case ref.ID != uuid.Nil:
		d, err = s.repo.GetDoctorByID(ctx, ref.ID)
	case strings.TrimSpace(ref.Email) != "":
		d, err = s.repo.GetDoctorByEmail(ctx, strings.TrimSpace(ref.Email))
	default:
		return nil, validationError("doctor is required")
	}
	if err != nil {
		return nil, classify("load doctor", err)
	}
	return d, nil
}

// Book proposes a slot for the request and commits it. The doctor-day lock
// narrows the window between proposal and insert; the store's atomic insert
// is what guarantees a slot is never held twice.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Booking, error) {
	if req.PatientID == uuid.Nil {
		return nil, validationError("patient is required")
	}

	doctor, err := s.ResolveDoctor(ctx, req.Doctor)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, classify("load patient", err)
	}

	lockDate := clock.DateOf(s.scheduler.now())
	if req.Date != nil {
		lockDate = *req.Date
	}

	var booking *Booking

	err = s.locker.WithDoctorDayLock(ctx, doctor.ID, lockDate, func(lockCtx context.Context) error {
		proposal, err := s.scheduler.ProposeSlot(lockCtx, doctor.ID, req.Date, req.Time)
		if err != nil {
			return err
		}

		appt := &Appointment{
			DoctorID:   doctor.ID,
			PatientID:  req.PatientID,
			DoctorName: doctor.FullName,
			Date:       proposal.Date,
			Time:       proposal.Time,
		}
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			appt.Reason = &reason
		}

		if err := s.repo.Insert(lockCtx, appt); err != nil {
			return err
		}

		booking = &Booking{Appointment: appt, Proposal: proposal}
		return nil
	})
	if err != nil {
		return nil, classify("book appointment", err)
	}

	return booking, nil
}

// LatestForPatient returns the patient's most recent appointment by
// (date, time), or nil when the patient has none.
func (s *Service) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*Appointment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	appts, err := s.repo.FindByPatient(ctx, patientID)
	if err != nil {
		return nil, classify("list patient appointments", err)
	}
	if len(appts) == 0 {
		return nil, nil
	}
	return &appts[0], nil
}

// ListForDoctor returns the doctor's appointments ordered by (date, time).
// An empty slice means the doctor has no appointments.
func (s *Service) ListForDoctor(ctx context.Context, ref DoctorRef) ([]Appointment, error) {
	doctor, err := s.ResolveDoctor(ctx, ref)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	appts, err := s.repo.FindByDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, classify("list doctor appointments", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}

func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classify("get appointment", err)
	}
	return appt, nil
}

// Complete deletes the appointment. Completion is terminal: a second call
// for the same id returns ErrAppointmentNotFound.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return classify("complete appointment", err)
	}
	return nil
}

// History returns the booking and completion events of an appointment,
// which outlive the appointment itself.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]EventLog, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, classify("list events", err)
	}
	if len(events) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return events, nil
}

// DoctorOf returns the doctor an appointment was booked with, read from its
// booking event so it still answers after completion.
func (s *Service) DoctorOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	events, err := s.History(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}

	var payload struct {
		DoctorID uuid.UUID `json:"doctor_id"`
	}
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		return uuid.Nil, storageError("decode event payload", err)
	}
	return payload.DoctorID, nil
}

var domainErrors = []error{
	ErrValidation,
	ErrDoctorNotFound,
	ErrPatientNotFound,
	ErrAppointmentNotFound,
	ErrOutOfBusinessHours,
	ErrInsufficientSeparation,
	ErrSlotAlreadyBooked,
	ErrPastDate,
	ErrStorageUnavailable,
}

// classify passes domain errors through unchanged and turns anything else
// (lock failures, deadlines, driver errors) into ErrStorageUnavailable.
func classify(op string, err error) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
