package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduler/internal/clinical"
	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

type BookAppointmentRequest struct {
	Doctor string `json:"doctor"`
	Date   string `json:"date,omitempty"`
	Time   string `json:"time,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID         uuid.UUID       `json:"id"`
	DoctorID   uuid.UUID       `json:"doctor_id"`
	PatientID  uuid.UUID       `json:"patient_id"`
	DoctorName string          `json:"doctor_name"`
	Date       clock.Date      `json:"date"`
	Time       clock.TimeOfDay `json:"time"`
	Reason     *string         `json:"reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type BookingResponse struct {
	AppointmentResponse
	SuggestedTime clock.TimeOfDay `json:"suggested_time"`
	RolledOver    bool            `json:"rolled_over"`
}

type CompletionResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type EventResponse struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type ConsultationRequest struct {
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Summary       string `json:"summary"`
	FollowUp      string `json:"follow_up,omitempty"`
}

type PrescriptionRequest struct {
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Medication    string `json:"medication"`
	Dosage        string `json:"dosage,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type ConsultationResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	Summary       string     `json:"summary"`
	FollowUp      string     `json:"follow_up,omitempty"`
	Date          clock.Date `json:"date"`
}

type PrescriptionResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	Medication    string     `json:"medication"`
	Dosage        string     `json:"dosage,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	DateIssued    clock.Date `json:"date_issued"`
}

type RecordsResponse struct {
	Consultations []ConsultationResponse `json:"consultations"`
	Prescriptions []PrescriptionResponse `json:"prescriptions"`
}

type ErrorResponse struct {
	Error         string           `json:"error"`
	Details       string           `json:"details,omitempty"`
	SuggestedDate *clock.Date      `json:"suggested_date,omitempty"`
	SuggestedTime *clock.TimeOfDay `json:"suggested_time,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		DoctorID:   a.DoctorID,
		PatientID:  a.PatientID,
		DoctorName: a.DoctorName,
		Date:       a.Date,
		Time:       a.Time,
		Reason:     a.Reason,
		CreatedAt:  a.CreatedAt,
	}
}

func toAppointmentResponses(appts []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

func toConsultationResponse(c *clinical.Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:            c.ID,
		AppointmentID: c.AppointmentID,
		DoctorID:      c.DoctorID,
		PatientID:     c.PatientID,
		Summary:       c.Summary,
		FollowUp:      c.FollowUp,
		Date:          c.Date,
	}
}

func toPrescriptionResponse(p *clinical.Prescription) PrescriptionResponse {
	return PrescriptionResponse{
		ID:            p.ID,
		AppointmentID: p.AppointmentID,
		DoctorID:      p.DoctorID,
		PatientID:     p.PatientID,
		Medication:    p.Medication,
		Dosage:        p.Dosage,
		Notes:         p.Notes,
		DateIssued:    p.DateIssued,
	}
}

func toConsultationResponses(cs []clinical.Consultation) []ConsultationResponse {
	out := make([]ConsultationResponse, 0, len(cs))
	for i := range cs {
		out = append(out, toConsultationResponse(&cs[i]))
	}
	return out
}

func toPrescriptionResponses(ps []clinical.Prescription) []PrescriptionResponse {
	out := make([]PrescriptionResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toPrescriptionResponse(&ps[i]))
	}
	return out
}
