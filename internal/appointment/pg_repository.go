package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

const (
	uniqueViolation    = "23505"
	slotConstraintName = "appointments_slot_key"
	appointmentColumns = "id, doctor_id, patient_id, doctor_name, appointment_date, appointment_time, reason, created_at"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

// insertError turns a violation of the slot constraint into ErrDuplicateSlot.
// Other errors pass through unchanged.
func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == slotConstraintName {
		return ErrDuplicateSlot
	}
	return err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, storageError("scan patient", err)
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.FullName,
		&d.Email,
		&d.LicenseNumber,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, storageError("scan doctor", err)
	}

	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	var tod pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.DoctorName,
		&date,
		&tod,
		&a.Reason,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, storageError("scan appointment", err)
	}

	a.Date = clock.DateOf(date)
	a.Time = clock.FromMicroseconds(tod.Microseconds)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate appointments", err)
	}

	return result, nil
}

func pgDate(d clock.Date) time.Time {
	return d.Midnight(time.UTC)
}

func pgTime(t clock.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Microseconds(), Valid: true}
}

func insertEvent(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID, eventType string, payload []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, now())
	`, eventType, appointmentID, payload)
	if err != nil {
		return storageError("insert event log", err)
	}
	return nil
}

// Directory

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, created_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, email, license_number, created_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, email, license_number, created_at
		FROM doctors
		WHERE lower(email) = lower($1)
	`, email)
	return scanDoctor(row)
}

func (r *PgRepository) AddDoctor(ctx context.Context, d Doctor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, full_name, email, license_number, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, d.ID, d.FullName, d.Email, d.LicenseNumber)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (r *PgRepository) AddPatient(ctx context.Context, p Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, email, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, p.ID, p.Email, p.FirstName, p.LastName)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// Appointment store

func (r *PgRepository) FindByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date clock.Date) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
		ORDER BY appointment_time ASC
	`, doctorID, pgDate(date))
	if err != nil {
		return nil, storageError("find by doctor and date", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ExistsSlot(ctx context.Context, slot Slot) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3
		)
	`, slot.DoctorID, pgDate(slot.Date), pgTime(slot.Time)).Scan(&exists)
	if err != nil {
		return false, storageError("exists slot", err)
	}
	return exists, nil
}

// Insert relies on the appointments_slot_key unique constraint; a concurrent
// insert for the same slot fails here even if both callers passed the
// Scheduler's own check.
func (r *PgRepository) Insert(ctx context.Context, a *Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageError("begin insert", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING `+appointmentColumns+`
	`, id, a.DoctorID, a.PatientID, a.DoctorName, pgDate(a.Date), pgTime(a.Time), a.Reason)

	created, err := scanAppointment(row)
	if err != nil {
		return insertError(err)
	}

	if err := insertEvent(ctx, tx, created.ID, EventAppointmentBooked, eventPayload(created)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return insertError(storageError("commit insert", err))
	}

	*a = *created
	return nil
}

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC
	`, patientID)
	if err != nil {
		return nil, storageError("find by patient", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY appointment_date ASC, appointment_time ASC
	`, doctorID)
	if err != nil {
		return nil, storageError("find by doctor", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageError("begin delete", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id)

	deleted, err := scanAppointment(row)
	if err != nil {
		return err
	}

	if err := insertEvent(ctx, tx, id, EventAppointmentCompleted, eventPayload(deleted)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageError("commit delete", err)
	}
	return nil
}

func (r *PgRepository) ListEvents(ctx context.Context, appointmentID uuid.UUID) ([]EventLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, appointment_id, payload, created_at
		FROM event_logs
		WHERE appointment_id = $1
		ORDER BY id ASC
	`, appointmentID)
	if err != nil {
		return nil, storageError("list events", err)
	}
	defer rows.Close()

	var result []EventLog
	for rows.Next() {
		var ev EventLog
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.AppointmentID, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, storageError("scan event", err)
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate events", err)
	}
	return result, nil
}
