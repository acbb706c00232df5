package appointment

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

// MemoryRepository is an in-process Repository. A single mutex makes the
// slot check and the write in Insert atomic.
type MemoryRepository struct {
	mu           sync.RWMutex
	doctors      map[uuid.UUID]Doctor
	patients     map[uuid.UUID]Patient
	appointments map[uuid.UUID]Appointment
	slots        map[Slot]uuid.UUID
	events       []EventLog
	nextEventID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:      make(map[uuid.UUID]Doctor),
		patients:     make(map[uuid.UUID]Patient),
		appointments: make(map[uuid.UUID]Appointment),
		slots:        make(map[Slot]uuid.UUID),
	}
}

func (r *MemoryRepository) AddDoctor(_ context.Context, d Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	r.doctors[d.ID] = d
	return nil
}

func (r *MemoryRepository) AddPatient(_ context.Context, p Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.patients[p.ID] = p
	return nil
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) GetDoctorByEmail(_ context.Context, email string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.doctors {
		if strings.EqualFold(d.Email, email) {
			d := d
			return &d, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) FindByDoctorAndDate(_ context.Context, doctorID uuid.UUID, date clock.Date) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date == date {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result, nil
}

func (r *MemoryRepository) ExistsSlot(_ context.Context, slot Slot) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.slots[slot]
	return ok, nil
}

func (r *MemoryRepository) Insert(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.slots[a.Slot()]; taken {
		return ErrDuplicateSlot
	}

	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	r.appointments[a.ID] = *a
	r.slots[a.Slot()] = a.ID

	r.appendEvent(a.ID, EventAppointmentBooked, eventPayload(a))
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) FindByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return later(result[i], result[j]) })
	return result, nil
}

func (r *MemoryRepository) FindByDoctor(_ context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return later(result[j], result[i]) })
	return result, nil
}

func (r *MemoryRepository) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	delete(r.slots, a.Slot())

	r.appendEvent(id, EventAppointmentCompleted, eventPayload(&a))
	return nil
}

func (r *MemoryRepository) ListEvents(_ context.Context, appointmentID uuid.UUID) ([]EventLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []EventLog
	for _, ev := range r.events {
		if ev.AppointmentID != nil && *ev.AppointmentID == appointmentID {
			result = append(result, ev)
		}
	}
	return result, nil
}

// appendEvent must be called with mu held.
func (r *MemoryRepository) appendEvent(appointmentID uuid.UUID, eventType string, payload []byte) {
	r.nextEventID++
	id := appointmentID
	r.events = append(r.events, EventLog{
		ID:            r.nextEventID,
		EventType:     eventType,
		AppointmentID: &id,
		Payload:       payload,
		CreatedAt:     time.Now(),
	})
}

// later reports whether a is after b by (date, time).
func later(a, b Appointment) bool {
	if a.Date != b.Date {
		return b.Date.Before(a.Date)
	}
	return a.Time > b.Time
}

func eventPayload(a *Appointment) []byte {
	data, _ := json.Marshal(map[string]any{
		"doctor_id":  a.DoctorID.String(),
		"patient_id": a.PatientID.String(),
		"date":       a.Date,
		"time":       a.Time,
	})
	return data
}
