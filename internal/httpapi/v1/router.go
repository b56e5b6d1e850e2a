// Package v1 wires the HTTP surface of the finanzas service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"context"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mlorenzo/finanzas/internal/service/cambio"
	"github.com/mlorenzo/finanzas/internal/service/generador"
)

// Server wires handlers and middleware using Chi. Reads and writes go
// through the storage interface; generation and rate logic through their
// services.
type Server struct {
	gen   generador.Service
	rates cambio.Service
	store Store
	ready func(ctx context.Context) error
	log   *slog.Logger
	rt    *chi.Mux
}

// New constructs the HTTP server with routes and middleware. ready may be
// nil when the backing store has no connectivity to check.
func New(store Store, gen generador.Service, rates cambio.Service, ready func(ctx context.Context) error, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		gen:   gen,
		rates: rates,
		store: store,
		ready: ready,
		log:   logger,
		rt:    r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints.
func (s *Server) routes() {
	// Generation (v1)
	s.rt.Post("/v1/gastos/generar", s.postGenerar)
	s.rt.Get("/v1/gastos", s.listGastos)
	// Sources (v1)
	s.rt.Post("/v1/gastos-unicos", s.postGastoUnico)
	s.rt.Get("/v1/gastos-unicos", s.listGastosUnicos)
	s.rt.Post("/v1/gastos-recurrentes", s.postGastoRecurrente)
	s.rt.Get("/v1/gastos-recurrentes", s.listGastosRecurrentes)
	s.rt.Post("/v1/debitos-automaticos", s.postDebitoAutomatico)
	s.rt.Get("/v1/debitos-automaticos", s.listDebitosAutomaticos)
	s.rt.Post("/v1/compras", s.postCompra)
	s.rt.Get("/v1/compras", s.listCompras)
	s.rt.Post("/v1/tarjetas", s.postTarjeta)
	// Exchange rates (v1)
	s.rt.Get("/v1/tipo-cambio/actual", s.getTipoCambioActual)
	s.rt.Get("/v1/tipo-cambio/{fecha}", s.getTipoCambioPorFecha)
	s.rt.Get("/v1/tipo-cambio", s.listTipoCambio)
	s.rt.Post("/v1/conversiones", s.postConversion)
	s.rt.Put("/v1/tipo-cambio", s.putTipoCambio)
	s.rt.Post("/v1/tipo-cambio/actualizar", s.postActualizarTipoCambio)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
