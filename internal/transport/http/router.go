// Package http exposes the reservation lifecycle over a chi router: the
// public booking surface, the operator surface, the Google consent flow, and
// the operational endpoints.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"reservo/backend/internal/metrics"
)

type RouterDeps struct {
	Reservations reservationService
	Auth         authGateway
	TimeZone     *time.Location
	Collector    *metrics.Collector
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if deps.Collector != nil {
		r.Use(deps.Collector.Middleware)
	}

	h := newHandler(deps.Reservations, deps.TimeZone, deps.Logger)
	oauth := newOAuthHandler(deps.Auth, deps.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/slots", h.listSlots)
		r.Get("/confirmation", h.confirmEmail)

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.createReservation)
			r.Get("/", h.listReservations)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getReservation)
				r.Post("/confirm", h.adminConfirm)
				r.Put("/email", h.updateEmail)
				r.Delete("/", h.deleteReservation)
			})
		})
	})

	r.Get("/google/auth", oauth.begin)
	r.Get("/oauth2/callback", oauth.callback)

	return r
}
