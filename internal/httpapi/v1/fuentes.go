package v1

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/mlorenzo/finanzas/internal/finanzas"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// userIDFilter parses the optional user_id query param; absent means all users.
func userIDFilter(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return uuid.Nil, true
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid user_id")
		return uuid.Nil, false
	}
	return userID, true
}

func montoDe(w http.ResponseWriter, moneda string, minor int64) (money.Amount, finanzas.Moneda, bool) {
	m := finanzas.Moneda(moneda)
	if !m.Valida() {
		unprocessable(w, "moneda must be ARS or USD", "invalid_currency")
		return money.Amount{}, "", false
	}
	if minor <= 0 {
		unprocessable(w, "monto must be > 0", "invalid_amount")
		return money.Amount{}, "", false
	}
	a, err := money.NewAmountFromMinorUnits(string(m), minor)
	if err != nil {
		unprocessable(w, "invalid amount", "invalid_amount")
		return money.Amount{}, "", false
	}
	return a, m, true
}

// --- tarjetas ---

func (s *Server) postTarjeta(w http.ResponseWriter, r *http.Request) {
	var req postTarjetaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == uuid.Nil {
		badRequest(w, "user_id is required")
		return
	}
	if req.Nombre == "" {
		unprocessable(w, "nombre is required", "validation_error")
		return
	}
	tipo := finanzas.TipoTarjeta(req.Tipo)
	if tipo != finanzas.TarjetaCredito && tipo != finanzas.TarjetaDebito {
		unprocessable(w, "tipo must be credito or debito", "validation_error")
		return
	}
	if tipo == finanzas.TarjetaCredito {
		if req.DiaMesCierre < 1 || req.DiaMesCierre > 31 || req.DiaMesVencimiento < 1 || req.DiaMesVencimiento > 31 {
			unprocessable(w, "dia_mes_cierre and dia_mes_vencimiento must be between 1 and 31", "validation_error")
			return
		}
	}

	t, err := s.store.CreateTarjeta(r.Context(), finanzas.Tarjeta{
		ID:                uuid.New(),
		UserID:            req.UserID,
		Nombre:            req.Nombre,
		Tipo:              tipo,
		DiaMesCierre:      req.DiaMesCierre,
		DiaMesVencimiento: req.DiaMesVencimiento,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, tarjetaResponse{
		ID:                t.ID,
		UserID:            t.UserID,
		Nombre:            t.Nombre,
		Tipo:              string(t.Tipo),
		DiaMesCierre:      t.DiaMesCierre,
		DiaMesVencimiento: t.DiaMesVencimiento,
	})
}

// --- gastos únicos ---

func (s *Server) postGastoUnico(w http.ResponseWriter, r *http.Request) {
	var req postGastoUnicoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == uuid.Nil {
		badRequest(w, "user_id is required")
		return
	}
	if req.Descripcion == "" {
		unprocessable(w, "descripcion is required", "validation_error")
		return
	}
	monto, moneda, ok := montoDe(w, req.Moneda, req.MontoMinor)
	if !ok {
		return
	}
	var ref decimal.Decimal
	if req.TipoCambioReferencia != "" {
		parsed, err := decimal.Parse(req.TipoCambioReferencia)
		if err != nil || !parsed.IsPos() {
			unprocessable(w, "tipo_cambio_referencia must be a positive decimal", "invalid_rate")
			return
		}
		ref = parsed
	}
	fecha := req.Fecha
	if fecha.IsZero() {
		unprocessable(w, "fecha is required", "validation_error")
		return
	}

	g, err := s.store.CreateGastoUnico(r.Context(), finanzas.GastoUnico{
		ID:                   uuid.New(),
		UserID:               req.UserID,
		Descripcion:          req.Descripcion,
		Monto:                monto,
		MonedaOrigen:         moneda,
		Fecha:                finanzas.SoloFecha(fecha),
		CategoriaID:          req.CategoriaID,
		ImportanciaID:        req.ImportanciaID,
		TipoPagoID:           req.TipoPagoID,
		TarjetaID:            req.TarjetaID,
		TipoCambioReferencia: ref,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toGastoUnicoResponse(g))
}

func (s *Server) listGastosUnicos(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFilter(w, r)
	if !ok {
		return
	}
	unicos, err := s.store.GastosUnicosPendientes(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]gastoUnicoResponse, 0, len(unicos))
	for _, g := range unicos {
		items = append(items, toGastoUnicoResponse(g))
	}
	toJSON(w, http.StatusOK, map[string]any{"items": items})
}

// --- reglas recurrentes (gastos recurrentes y débitos automáticos) ---

func (s *Server) reglaDe(w http.ResponseWriter, req postReglaRequest, fechaFinRequerida bool) (finanzas.ReglaRecurrente, bool) {
	if req.UserID == uuid.Nil {
		badRequest(w, "user_id is required")
		return finanzas.ReglaRecurrente{}, false
	}
	if req.Descripcion == "" {
		unprocessable(w, "descripcion is required", "validation_error")
		return finanzas.ReglaRecurrente{}, false
	}
	monto, moneda, ok := montoDe(w, req.Moneda, req.MontoMinor)
	if !ok {
		return finanzas.ReglaRecurrente{}, false
	}
	if req.DiaDePago < 1 || req.DiaDePago > 31 {
		unprocessable(w, "dia_de_pago must be between 1 and 31", "validation_error")
		return finanzas.ReglaRecurrente{}, false
	}
	frecuencia := finanzas.Frecuencia(req.Frecuencia)
	if !frecuencia.Valida() {
		unprocessable(w, "invalid frecuencia", "validation_error")
		return finanzas.ReglaRecurrente{}, false
	}
	if fechaFinRequerida && req.FechaFin == nil {
		unprocessable(w, "fecha_fin is required", "validation_error")
		return finanzas.ReglaRecurrente{}, false
	}

	regla := finanzas.ReglaRecurrente{
		ID:            uuid.New(),
		UserID:        req.UserID,
		Descripcion:   req.Descripcion,
		Monto:         monto,
		MonedaOrigen:  moneda,
		DiaDePago:     req.DiaDePago,
		MesDePago:     req.MesDePago,
		Frecuencia:    frecuencia,
		CategoriaID:   req.CategoriaID,
		ImportanciaID: req.ImportanciaID,
		TipoPagoID:    req.TipoPagoID,
		TarjetaID:     req.TarjetaID,
		Activo:        true,
	}
	if req.FechaInicio != nil {
		inicio := finanzas.SoloFecha(*req.FechaInicio)
		regla.FechaInicio = &inicio
	}
	if req.FechaFin != nil {
		fin := finanzas.SoloFecha(*req.FechaFin)
		regla.FechaFin = &fin
	}
	if req.MontoUSDMinor != nil {
		if *req.MontoUSDMinor <= 0 {
			unprocessable(w, "monto_usd_minor must be > 0", "invalid_amount")
			return finanzas.ReglaRecurrente{}, false
		}
		usd, err := money.NewAmountFromMinorUnits(string(finanzas.MonedaUSD), *req.MontoUSDMinor)
		if err != nil {
			unprocessable(w, "invalid monto_usd_minor", "invalid_amount")
			return finanzas.ReglaRecurrente{}, false
		}
		regla.MontoUSD = &usd
	}
	return regla, true
}

func (s *Server) postGastoRecurrente(w http.ResponseWriter, r *http.Request) {
	var req postReglaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	regla, ok := s.reglaDe(w, req, false)
	if !ok {
		return
	}
	g, err := s.store.CreateGastoRecurrente(r.Context(), finanzas.GastoRecurrente{ReglaRecurrente: regla})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toReglaResponse(g.ReglaRecurrente))
}

func (s *Server) listGastosRecurrentes(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFilter(w, r)
	if !ok {
		return
	}
	reglas, err := s.store.GastosRecurrentesActivos(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]reglaResponse, 0, len(reglas))
	for _, g := range reglas {
		items = append(items, toReglaResponse(g.ReglaRecurrente))
	}
	toJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) postDebitoAutomatico(w http.ResponseWriter, r *http.Request) {
	var req postReglaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// fecha_fin is mandatory for automatic debits; generation stops for good
	// once the date passes.
	regla, ok := s.reglaDe(w, req, true)
	if !ok {
		return
	}
	d, err := s.store.CreateDebitoAutomatico(r.Context(), finanzas.DebitoAutomatico{ReglaRecurrente: regla})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toReglaResponse(d.ReglaRecurrente))
}

func (s *Server) listDebitosAutomaticos(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFilter(w, r)
	if !ok {
		return
	}
	debitos, err := s.store.DebitosAutomaticosActivos(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]reglaResponse, 0, len(debitos))
	for _, d := range debitos {
		items = append(items, toReglaResponse(d.ReglaRecurrente))
	}
	toJSON(w, http.StatusOK, map[string]any{"items": items})
}

// --- compras ---

func (s *Server) postCompra(w http.ResponseWriter, r *http.Request) {
	var req postCompraRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == uuid.Nil {
		badRequest(w, "user_id is required")
		return
	}
	if req.Descripcion == "" {
		unprocessable(w, "descripcion is required", "validation_error")
		return
	}
	monto, moneda, ok := montoDe(w, req.Moneda, req.MontoTotalMinor)
	if !ok {
		return
	}
	if req.CantidadCuotas < 1 {
		unprocessable(w, "cantidad_cuotas must be >= 1", "validation_error")
		return
	}
	if req.Fecha.IsZero() {
		unprocessable(w, "fecha is required", "validation_error")
		return
	}

	c, err := s.store.CreateCompra(r.Context(), finanzas.Compra{
		ID:              uuid.New(),
		UserID:          req.UserID,
		Descripcion:     req.Descripcion,
		MontoTotal:      monto,
		MonedaOrigen:    moneda,
		CantidadCuotas:  req.CantidadCuotas,
		Fecha:           finanzas.SoloFecha(req.Fecha),
		CategoriaID:     req.CategoriaID,
		ImportanciaID:   req.ImportanciaID,
		TipoPagoID:      req.TipoPagoID,
		TarjetaID:       req.TarjetaID,
		PendienteCuotas: true,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCompraResponse(c))
}

func (s *Server) listCompras(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFilter(w, r)
	if !ok {
		return
	}
	compras, err := s.store.ComprasPendientes(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items := make([]compraResponse, 0, len(compras))
	for _, c := range compras {
		items = append(items, toCompraResponse(c))
	}
	toJSON(w, http.StatusOK, map[string]any{"items": items})
}
