package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is safe to apply repeatedly. Clinical records carry appointment_id
// without a foreign key: completing an appointment deletes its row while
// consultations and prescriptions keep the id.
const Schema = `
CREATE TABLE IF NOT EXISTS doctors (
    id             UUID PRIMARY KEY,
    full_name      TEXT NOT NULL,
    email          TEXT NOT NULL UNIQUE,
    license_number TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS patients (
    id         UUID PRIMARY KEY,
    email      TEXT NOT NULL UNIQUE,
    first_name TEXT NOT NULL DEFAULT '',
    last_name  TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS appointments (
    id               UUID PRIMARY KEY,
    doctor_id        UUID NOT NULL REFERENCES doctors(id),
    patient_id       UUID NOT NULL REFERENCES patients(id),
    doctor_name      TEXT NOT NULL,
    appointment_date DATE NOT NULL,
    appointment_time TIME NOT NULL,
    reason           TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT appointments_slot_key UNIQUE (doctor_id, appointment_date, appointment_time),
    CONSTRAINT appointments_business_hours CHECK (appointment_time >= '06:00' AND appointment_time < '20:00')
);

CREATE INDEX IF NOT EXISTS idx_appointments_patient
    ON appointments (patient_id, appointment_date DESC, appointment_time DESC);

CREATE TABLE IF NOT EXISTS event_logs (
    id             BIGSERIAL PRIMARY KEY,
    event_type     TEXT NOT NULL,
    appointment_id UUID,
    payload        JSONB NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_event_logs_appointment
    ON event_logs (appointment_id, id);

CREATE TABLE IF NOT EXISTS consultations (
    id                UUID PRIMARY KEY,
    appointment_id    UUID,
    doctor_id         UUID NOT NULL REFERENCES doctors(id),
    patient_id        UUID NOT NULL REFERENCES patients(id),
    summary           TEXT NOT NULL,
    follow_up         TEXT NOT NULL DEFAULT '',
    consultation_date DATE NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_consultations_patient ON consultations (patient_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_consultations_appointment ON consultations (appointment_id);

CREATE TABLE IF NOT EXISTS prescriptions (
    id             UUID PRIMARY KEY,
    appointment_id UUID,
    doctor_id      UUID NOT NULL REFERENCES doctors(id),
    patient_id     UUID NOT NULL REFERENCES patients(id),
    medication     TEXT NOT NULL,
    dosage         TEXT NOT NULL DEFAULT '',
    notes          TEXT NOT NULL DEFAULT '',
    date_issued    DATE NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prescriptions_patient ON prescriptions (patient_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_prescriptions_appointment ON prescriptions (appointment_id);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
