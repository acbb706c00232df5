package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/medical-appointment-scheduler/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduler/internal/auth"
	"github.com/hackgods/medical-appointment-scheduler/internal/clinical"
)

type RouterConfig struct {
	Logger       zerolog.Logger
	Appointments *appointment.Service
	Clinical     *clinical.Service
	Verifier     *auth.Verifier
	PgPool       *pgxpool.Pool // nil with memory storage
	Redis        *redis.Client // nil without the Redis lock
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	patient := RequireRole(auth.RolePatient)
	doctor := RequireRole(auth.RoleDoctor)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier))

		// Appointment endpoints
		r.With(patient).Post("/appointments", bookAppointmentHandler(cfg.Appointments))
		r.With(patient).Get("/appointments/latest", latestAppointmentHandler(cfg.Appointments))
		r.Get("/appointments/doctor", doctorAppointmentsHandler(cfg.Appointments))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.With(doctor).Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Appointments))
		r.With(doctor).Get("/appointments/{id}/events", appointmentEventsHandler(cfg.Appointments))
		r.With(doctor).Get("/appointments/{id}/records", appointmentRecordsHandler(cfg.Appointments, cfg.Clinical))

		// Clinical records
		r.With(doctor).Post("/consultations", createConsultationHandler(cfg.Clinical))
		r.With(doctor).Post("/prescriptions", createPrescriptionHandler(cfg.Clinical))
		r.With(patient).Get("/consultations/mine", myConsultationsHandler(cfg.Clinical))
		r.With(patient).Get("/prescriptions/mine", myPrescriptionsHandler(cfg.Clinical))
	})

	return r
}
