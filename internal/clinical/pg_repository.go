package clinical

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

const (
	consultationColumns = "id, appointment_id, doctor_id, patient_id, summary, follow_up, consultation_date, created_at"
	prescriptionColumns = "id, appointment_id, doctor_id, patient_id, medication, dosage, notes, date_issued, created_at"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, appointment.ErrStorageUnavailable, err)
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	var date time.Time
	if err := row.Scan(&c.ID, &c.AppointmentID, &c.DoctorID, &c.PatientID, &c.Summary, &c.FollowUp, &date, &c.CreatedAt); err != nil {
		return nil, storageError("scan consultation", err)
	}
	c.Date = clock.DateOf(date)
	return &c, nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var date time.Time
	if err := row.Scan(&p.ID, &p.AppointmentID, &p.DoctorID, &p.PatientID, &p.Medication, &p.Dosage, &p.Notes, &date, &p.CreatedAt); err != nil {
		return nil, storageError("scan prescription", err)
	}
	p.DateIssued = clock.DateOf(date)
	return &p, nil
}

func (r *PgRepository) CreateConsultation(ctx context.Context, c *Consultation) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO consultations (`+consultationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING `+consultationColumns+`
	`, uuid.New(), c.AppointmentID, c.DoctorID, c.PatientID, c.Summary, c.FollowUp, c.Date.Midnight(time.UTC))

	created, err := scanConsultation(row)
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

func (r *PgRepository) CreatePrescription(ctx context.Context, p *Prescription) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (`+prescriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING `+prescriptionColumns+`
	`, uuid.New(), p.AppointmentID, p.DoctorID, p.PatientID, p.Medication, p.Dosage, p.Notes, p.DateIssued.Midnight(time.UTC))

	created, err := scanPrescription(row)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

func (r *PgRepository) ListConsultationsByPatient(ctx context.Context, patientID uuid.UUID) ([]Consultation, error) {
	return r.queryConsultations(ctx, "patient_id", patientID)
}

func (r *PgRepository) ListConsultationsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Consultation, error) {
	return r.queryConsultations(ctx, "appointment_id", appointmentID)
}

func (r *PgRepository) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error) {
	return r.queryPrescriptions(ctx, "patient_id", patientID)
}

func (r *PgRepository) ListPrescriptionsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Prescription, error) {
	return r.queryPrescriptions(ctx, "appointment_id", appointmentID)
}

// column is always one of the two literals above, never caller input.
func (r *PgRepository) queryConsultations(ctx context.Context, column string, id uuid.UUID) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, storageError("list consultations", err)
	}
	defer rows.Close()

	var result []Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate consultations", err)
	}
	return result, nil
}

func (r *PgRepository) queryPrescriptions(ctx context.Context, column string, id uuid.UUID) ([]Prescription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, storageError("list prescriptions", err)
	}
	defer rows.Close()

	var result []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate prescriptions", err)
	}
	return result, nil
}
