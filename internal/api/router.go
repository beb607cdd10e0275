package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-workflow-engine/internal/booking"
	"github.com/hackgods/clinic-workflow-engine/internal/lab"
	"github.com/hackgods/clinic-workflow-engine/internal/pharmacy"
	"github.com/hackgods/clinic-workflow-engine/internal/schedule"
	"github.com/hackgods/clinic-workflow-engine/internal/visit"
)

type RouterConfig struct {
	Schedules *schedule.Service
	Bookings  *booking.Service
	Visits    *visit.Service
	Lab       *lab.Service
	Pharmacy  *pharmacy.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Log       zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Schedule endpoints
	r.Get("/availability", resolveAvailabilityHandler(cfg.Schedules))
	r.Put("/schedules", upsertScheduleHandler(cfg.Schedules))
	r.Get("/schedules", listSchedulesHandler(cfg.Schedules))

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Bookings))
	r.Get("/appointments", listAppointmentsHandler(cfg.Bookings))
	r.Get("/appointments/{bookingID}", getAppointmentHandler(cfg.Bookings))
	r.Patch("/appointments/{bookingID}", updateAppointmentHandler(cfg.Bookings))

	// Visit endpoints
	r.Post("/visits", createVisitHandler(cfg.Visits))
	r.Get("/visits/{id}", getVisitHandler(cfg.Visits))
	r.Post("/visits/{id}/actions", applyVisitActionHandler(cfg.Visits))

	// Lab endpoints
	r.Post("/lab-requests", createLabRequestHandler(cfg.Lab))
	r.Get("/lab-requests/{id}", getLabRequestHandler(cfg.Lab))
	r.Get("/lab-requests/{id}/activity", labActivityHandler(cfg.Lab))
	r.Post("/lab-requests/{id}/actions", applyLabActionHandler(cfg.Lab))

	// Pharmacy endpoints
	r.Post("/medicines", createMedicineHandler(cfg.Pharmacy))
	r.Get("/medicines/{id}", getMedicineHandler(cfg.Pharmacy))
	r.Get("/medicines/{id}/movements", listMovementsHandler(cfg.Pharmacy))
	r.Post("/medicines/{id}/actions", applyStockActionHandler(cfg.Pharmacy))
	r.Post("/dispense-requests", createDispenseRequestHandler(cfg.Pharmacy))
	r.Post("/dispense-requests/{id}/fulfill", fulfillDispenseRequestHandler(cfg.Pharmacy))
	r.Post("/dispense-requests/{id}/cancel", cancelDispenseRequestHandler(cfg.Pharmacy))

	return r
}
