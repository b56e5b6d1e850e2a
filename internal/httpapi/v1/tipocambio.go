package v1

import (
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/govalues/decimal"

	"github.com/mlorenzo/finanzas/internal/finanzas"
)

func (s *Server) getTipoCambioActual(w http.ResponseWriter, r *http.Request) {
	tc, err := s.rates.CurrentRate(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTipoCambioResponse(tc))
}

func (s *Server) listTipoCambio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var desde, hasta *time.Time
	if raw := q.Get("desde"); raw != "" {
		t, err := time.Parse(fechaLayout, raw)
		if err != nil {
			badRequest(w, "invalid desde, expected YYYY-MM-DD")
			return
		}
		desde = &t
	}
	if raw := q.Get("hasta"); raw != "" {
		t, err := time.Parse(fechaLayout, raw)
		if err != nil {
			badRequest(w, "invalid hasta, expected YYYY-MM-DD")
			return
		}
		hasta = &t
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	rates, err := s.rates.Historial(r.Context(), desde, hasta, limit)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]tipoCambioResponse, 0, len(rates))
	for _, tc := range rates {
		items = append(items, toTipoCambioResponse(tc))
	}
	toJSON(w, http.StatusOK, map[string]any{"items": items})
}

// putTipoCambio records a manual rate; fecha defaults to today.
func (s *Server) putTipoCambio(w http.ResponseWriter, r *http.Request) {
	var req putTipoCambioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	compra, err := decimal.Parse(req.ValorCompra)
	if err != nil {
		unprocessable(w, "valor_compra must be a decimal", "invalid_rate")
		return
	}
	venta, err := decimal.Parse(req.ValorVenta)
	if err != nil {
		unprocessable(w, "valor_venta must be a decimal", "invalid_rate")
		return
	}
	fecha := time.Now()
	if req.Fecha != nil {
		fecha = *req.Fecha
	}

	tc, err := s.rates.SetManualRate(r.Context(), finanzas.SoloFecha(fecha), compra, venta)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTipoCambioResponse(tc))
}

// getTipoCambioPorFecha resolves the rate applicable on a date, falling back
// to earlier history and finally to the current rate.
func (s *Server) getTipoCambioPorFecha(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "fecha")
	fecha, err := time.Parse(fechaLayout, raw)
	if err != nil {
		badRequest(w, "invalid fecha, expected YYYY-MM-DD")
		return
	}
	tc, err := s.rates.RateForDate(r.Context(), fecha)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTipoCambioResponse(tc))
}

// postConversion converts one amount to both currencies at the current rate.
func (s *Server) postConversion(w http.ResponseWriter, r *http.Request) {
	var req conversionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	monto, moneda, ok := montoDe(w, req.Moneda, req.MontoMinor)
	if !ok {
		return
	}
	m, err := s.rates.AmbosMontos(r.Context(), monto, moneda, nil)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	arsMinor, _ := m.ARS.MinorUnits()
	resp := conversionResponse{
		MontoARSMinor:   arsMinor,
		MontoARS:        m.ARS.String(),
		TipoCambioUsado: m.TipoCambioUsado.String(),
	}
	if m.USD != nil {
		usdMinor, _ := m.USD.MinorUnits()
		resp.MontoUSDMinor = &usdMinor
		resp.MontoUSD = m.USD.String()
	}
	toJSON(w, http.StatusOK, resp)
}

// postActualizarTipoCambio refreshes today's rate from the external provider.
func (s *Server) postActualizarTipoCambio(w http.ResponseWriter, r *http.Request) {
	tc, err := s.rates.ActualizarDesdeAPI(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTipoCambioResponse(tc))
}
