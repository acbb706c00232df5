package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduler/internal/auth"
	"github.com/hackgods/medical-appointment-scheduler/internal/clinical"
	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "could not parse JSON body")
		return false
	}
	return true
}

func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// optionalID parses s as a UUID, treating the empty string as absent.
func optionalID(s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// doctorRef treats a UUID as a doctor id and anything else as an email.
func doctorRef(s string) appointment.DoctorRef {
	s = strings.TrimSpace(s)
	if id, err := uuid.Parse(s); err == nil {
		return appointment.DoctorRef{ID: id}
	}
	return appointment.DoctorRef{Email: s}
}

func forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "forbidden", "caller is not a participant of this appointment")
}

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if strings.TrimSpace(req.Doctor) == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "doctor is required")
			return
		}

		bookReq := appointment.BookRequest{
			PatientID: caller(r).Subject,
			Doctor:    doctorRef(req.Doctor),
			Reason:    req.Reason,
		}

		if req.Date != "" {
			d, err := clock.ParseDate(req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
				return
			}
			bookReq.Date = &d
		}

		if req.Time != "" {
			t, err := clock.ParseTime(req.Time)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "time must be HH:MM:SS")
				return
			}
			bookReq.Time = &t
		}

		booking, err := svc.Book(r.Context(), bookReq)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			AppointmentResponse: toAppointmentResponse(booking.Appointment),
			SuggestedTime:       booking.Proposal.Suggested,
			RolledOver:          booking.Proposal.RolledOver,
		})
	}
}

func latestAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.LatestForPatient(r.Context(), caller(r).Subject)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if appt == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// doctorAppointmentsHandler lists by ?doctor_id= or ?email=. A doctor who
// passes neither gets their own list.
func doctorAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var ref appointment.DoctorRef

		switch {
		case q.Get("doctor_id") != "":
			id, err := uuid.Parse(q.Get("doctor_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "doctor_id must be a valid UUID")
				return
			}
			ref.ID = id
		case q.Get("email") != "":
			ref.Email = q.Get("email")
		case caller(r).Role == auth.RoleDoctor:
			ref.ID = caller(r).Subject
		default:
			writeError(w, http.StatusBadRequest, "validation_error", "doctor_id or email is required")
			return
		}

		appts, err := svc.ListForDoctor(r.Context(), ref)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if len(appts) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetDetail(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		who := caller(r).Subject
		if who != appt.PatientID && who != appt.DoctorID {
			forbidden(w)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetDetail(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if appt.DoctorID != caller(r).Subject {
			forbidden(w)
			return
		}

		if err := svc.Complete(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, CompletionResponse{ID: id, Status: "completed"})
	}
}

// ownsAppointment writes the error response and returns false unless the
// calling doctor booked appointment id. Completed appointments still count.
func ownsAppointment(w http.ResponseWriter, r *http.Request, svc *appointment.Service, id uuid.UUID) bool {
	doctorID, err := svc.DoctorOf(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return false
	}
	if doctorID != caller(r).Subject {
		forbidden(w)
		return false
	}
	return true
}

func appointmentEventsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok || !ownsAppointment(w, r, svc, id) {
			return
		}

		events, err := svc.History(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]EventResponse, 0, len(events))
		for _, ev := range events {
			resp = append(resp, EventResponse{
				ID:        ev.ID,
				EventType: ev.EventType,
				Payload:   json.RawMessage(ev.Payload),
				CreatedAt: ev.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func appointmentRecordsHandler(svc *appointment.Service, records *clinical.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok || !ownsAppointment(w, r, svc, id) {
			return
		}

		recs, err := records.ListForAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, RecordsResponse{
			Consultations: toConsultationResponses(recs.Consultations),
			Prescriptions: toPrescriptionResponses(recs.Prescriptions),
		})
	}
}

func createConsultationHandler(records *clinical.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConsultationRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		patientID, err := uuid.Parse(strings.TrimSpace(req.PatientID))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "patient_id must be a valid UUID")
			return
		}
		apptID, err := optionalID(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "appointment_id must be a valid UUID")
			return
		}

		c, err := records.RecordConsultation(r.Context(), clinical.ConsultationInput{
			DoctorID:      caller(r).Subject,
			PatientID:     patientID,
			AppointmentID: apptID,
			Summary:       req.Summary,
			FollowUp:      req.FollowUp,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toConsultationResponse(c))
	}
}

func createPrescriptionHandler(records *clinical.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PrescriptionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		patientID, err := uuid.Parse(strings.TrimSpace(req.PatientID))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "patient_id must be a valid UUID")
			return
		}
		apptID, err := optionalID(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "appointment_id must be a valid UUID")
			return
		}

		p, err := records.RecordPrescription(r.Context(), clinical.PrescriptionInput{
			DoctorID:      caller(r).Subject,
			PatientID:     patientID,
			AppointmentID: apptID,
			Medication:    req.Medication,
			Dosage:        req.Dosage,
			Notes:         req.Notes,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPrescriptionResponse(p))
	}
}

func myConsultationsHandler(records *clinical.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := records.ListConsultationsForPatient(r.Context(), caller(r).Subject)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toConsultationResponses(cs))
	}
}

func myPrescriptionsHandler(records *clinical.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := records.ListPrescriptionsForPatient(r.Context(), caller(r).Subject)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPrescriptionResponses(ps))
	}
}
