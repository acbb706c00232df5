package clinical

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

var testNow = time.Date(2024, time.May, 6, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	appts    *appointment.MemoryRepository
	doctorID uuid.UUID
	patient  uuid.UUID
	booked   *appointment.Appointment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	appts := appointment.NewMemoryRepository()
	doctorID, patientID := uuid.New(), uuid.New()
	require.NoError(t, appts.AddDoctor(ctx, appointment.Doctor{ID: doctorID, FullName: "Dr. Grace Hopper", Email: "grace@vitacare.test"}))
	require.NoError(t, appts.AddPatient(ctx, appointment.Patient{ID: patientID, Email: "pat@example.test"}))

	booked := &appointment.Appointment{
		DoctorID:   doctorID,
		PatientID:  patientID,
		DoctorName: "Dr. Grace Hopper",
		Date:       clock.DateOf(testNow),
		Time:       clock.NewTime(9, 0, 0),
	}
	require.NoError(t, appts.Insert(ctx, booked))

	svc := NewService(NewMemoryRepository(), appts, func() time.Time { return testNow })
	return &fixture{svc: svc, appts: appts, doctorID: doctorID, patient: patientID, booked: booked}
}

func TestRecordConsultation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.RecordConsultation(ctx, ConsultationInput{
		DoctorID:      f.doctorID,
		PatientID:     f.patient,
		AppointmentID: &f.booked.ID,
		Summary:       "  mild fever  ",
		FollowUp:      "two weeks",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "mild fever", c.Summary)
	assert.Equal(t, clock.DateOf(testNow), c.Date)
}

func TestRecordConsultation_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unknown := uuid.New()

	tests := []struct {
		name    string
		in      ConsultationInput
		wantErr error
	}{
		{"missing summary", ConsultationInput{DoctorID: f.doctorID, PatientID: f.patient}, appointment.ErrValidation},
		{"unknown patient", ConsultationInput{DoctorID: f.doctorID, PatientID: uuid.New(), Summary: "x"}, appointment.ErrPatientNotFound},
		{"unknown appointment", ConsultationInput{DoctorID: f.doctorID, PatientID: f.patient, AppointmentID: &unknown, Summary: "x"}, appointment.ErrAppointmentNotFound},
		{"other doctor's appointment", ConsultationInput{DoctorID: uuid.New(), PatientID: f.patient, AppointmentID: &f.booked.ID, Summary: "x"}, appointment.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordConsultation(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecordPrescription_RequiresMedication(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordPrescription(context.Background(), PrescriptionInput{
		DoctorID:   f.doctorID,
		PatientID:  f.patient,
		Medication: " ",
	})
	assert.ErrorIs(t, err, appointment.ErrValidation)
}

func TestListForPatient_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, med := range []string{"amoxicillin", "ibuprofen"} {
		_, err := f.svc.RecordPrescription(ctx, PrescriptionInput{DoctorID: f.doctorID, PatientID: f.patient, Medication: med})
		require.NoError(t, err)
	}

	ps, err := f.svc.ListPrescriptionsForPatient(ctx, f.patient)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "ibuprofen", ps[0].Medication)
	assert.Equal(t, "amoxicillin", ps[1].Medication)

	cs, err := f.svc.ListConsultationsForPatient(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, cs)
	assert.Empty(t, cs)
}

func TestListForAppointment_SurvivesCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordConsultation(ctx, ConsultationInput{DoctorID: f.doctorID, PatientID: f.patient, AppointmentID: &f.booked.ID, Summary: "checkup"})
	require.NoError(t, err)
	_, err = f.svc.RecordPrescription(ctx, PrescriptionInput{DoctorID: f.doctorID, PatientID: f.patient, AppointmentID: &f.booked.ID, Medication: "vitamin d"})
	require.NoError(t, err)

	require.NoError(t, f.appts.DeleteByID(ctx, f.booked.ID))

	records, err := f.svc.ListForAppointment(ctx, f.booked.ID)
	require.NoError(t, err)
	assert.Len(t, records.Consultations, 1)
	assert.Len(t, records.Prescriptions, 1)
	assert.Equal(t, f.booked.ID, *records.Consultations[0].AppointmentID)
}
