// Package directory generates fake doctors and patients for local runs and
// load tests.
package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

// Writer is satisfied by both appointment repositories.
type Writer interface {
	AddDoctor(ctx context.Context, d appointment.Doctor) error
	AddPatient(ctx context.Context, p appointment.Patient) error
}

type Directory struct {
	Doctors  []appointment.Doctor
	Patients []appointment.Patient
}

// Generate builds a directory from faker. Emails carry the index so they
// stay unique within one run.
func Generate(faker *gofakeit.Faker, doctors, patients int) Directory {
	dir := Directory{
		Doctors:  make([]appointment.Doctor, 0, doctors),
		Patients: make([]appointment.Patient, 0, patients),
	}

	for i := 0; i < doctors; i++ {
		first, last := faker.FirstName(), faker.LastName()
		spec := specialties[faker.Number(0, len(specialties)-1)]
		dir.Doctors = append(dir.Doctors, appointment.Doctor{
			ID:            uuid.New(),
			FullName:      fmt.Sprintf("Dr. %s %s (%s)", first, last, spec),
			Email:         emailFor(first, last, i, "vitacare.test"),
			LicenseNumber: faker.Numerify("MD-######"),
		})
	}

	for i := 0; i < patients; i++ {
		first, last := faker.FirstName(), faker.LastName()
		dir.Patients = append(dir.Patients, appointment.Patient{
			ID:        uuid.New(),
			Email:     emailFor(first, last, i, "example.test"),
			FirstName: first,
			LastName:  last,
		})
	}

	return dir
}

// Load writes every entry of dir through w, stopping at the first error.
func Load(ctx context.Context, w Writer, dir Directory) error {
	for _, d := range dir.Doctors {
		if err := w.AddDoctor(ctx, d); err != nil {
			return fmt.Errorf("add doctor %s: %w", d.Email, err)
		}
	}
	for _, p := range dir.Patients {
		if err := w.AddPatient(ctx, p); err != nil {
			return fmt.Errorf("add patient %s: %w", p.Email, err)
		}
	}
	return nil
}

func emailFor(first, last string, i int, domain string) string {
	local := strings.ToLower(first + "." + last)
	local = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r == '.' {
			return r
		}
		return -1
	}, local)
	return fmt.Sprintf("%s%d@%s", local, i+1, domain)
}
