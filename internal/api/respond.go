package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps a domain error to its HTTP status. 5xx causes are
// logged with the request logger; their details stay out of the response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var sepErr *appointment.SeparationError
	if errors.As(err, &sepErr) {
		date, suggested := sepErr.Date, sepErr.Suggested
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:         "insufficient_separation",
			Details:       err.Error(),
			SuggestedDate: &date,
			SuggestedTime: &suggested,
		})
		return
	}

	switch {
	case errors.Is(err, appointment.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, appointment.ErrOutOfBusinessHours):
		writeError(w, http.StatusBadRequest, "out_of_business_hours", err.Error())
	case errors.Is(err, appointment.ErrInsufficientSeparation):
		writeError(w, http.StatusBadRequest, "insufficient_separation", err.Error())
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusBadRequest, "slot_already_booked", appointment.ErrSlotAlreadyBooked.Error())
	case errors.Is(err, appointment.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrStorageUnavailable):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("storage unavailable")
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusInternalServerError, "storage_unavailable", "storage is temporarily unavailable, please retry")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
