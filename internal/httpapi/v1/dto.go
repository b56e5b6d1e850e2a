package v1

import (
	"time"

	"github.com/google/uuid"

	"github.com/mlorenzo/finanzas/internal/finanzas"
	"github.com/mlorenzo/finanzas/internal/service/generador"
)

const fechaLayout = "2006-01-02"

// --- generation ---

type generarRequest struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

type itemGeneradoResponse struct {
	Tipo          string    `json:"tipo"`
	GastoID       uuid.UUID `json:"gasto_id"`
	FuenteID      uuid.UUID `json:"fuente_id"`
	Descripcion   string    `json:"descripcion"`
	MontoARSMinor int64     `json:"monto_ars_minor"`
	MontoARS      string    `json:"monto_ars"`
}

type itemErrorResponse struct {
	Tipo        string    `json:"tipo"`
	FuenteID    uuid.UUID `json:"fuente_id"`
	Descripcion string    `json:"descripcion"`
	Error       string    `json:"error"`
}

type desgloseResponse struct {
	Procesadas int `json:"procesadas"`
	Generadas  int `json:"generadas"`
	Salteadas  int `json:"salteadas"`
	Errores    int `json:"errores"`
}

type resumenResponse struct {
	TotalProcesadas int                         `json:"total_procesadas"`
	DuracionMs      int64                       `json:"duracion_ms"`
	PorTipo         map[string]desgloseResponse `json:"por_tipo"`
}

type generarResponse struct {
	Generados []itemGeneradoResponse `json:"generados"`
	Errores   []itemErrorResponse    `json:"errores"`
	Resumen   resumenResponse        `json:"resumen"`
}

func toGenerarResponse(res generador.Resultado) generarResponse {
	out := generarResponse{
		Generados: make([]itemGeneradoResponse, 0, len(res.Success)),
		Errores:   make([]itemErrorResponse, 0, len(res.Errors)),
		Resumen: resumenResponse{
			TotalProcesadas: res.Resumen.TotalProcesadas,
			DuracionMs:      res.Resumen.Duracion.Milliseconds(),
			PorTipo:         make(map[string]desgloseResponse, len(res.Resumen.PorTipo)),
		},
	}
	for _, it := range res.Success {
		minor, _ := it.MontoARS.MinorUnits()
		out.Generados = append(out.Generados, itemGeneradoResponse{
			Tipo:          string(it.Tipo),
			GastoID:       it.GastoID,
			FuenteID:      it.FuenteID,
			Descripcion:   it.Descripcion,
			MontoARSMinor: minor,
			MontoARS:      it.MontoARS.String(),
		})
	}
	for _, it := range res.Errors {
		out.Errores = append(out.Errores, itemErrorResponse{
			Tipo:        string(it.Tipo),
			FuenteID:    it.FuenteID,
			Descripcion: it.Descripcion,
			Error:       it.Error,
		})
	}
	for kind, d := range res.Resumen.PorTipo {
		out.Resumen.PorTipo[string(kind)] = desgloseResponse{
			Procesadas: d.Procesadas,
			Generadas:  d.Generadas,
			Salteadas:  d.Salteadas,
			Errores:    d.Errores,
		}
	}
	return out
}

// --- gastos ---

type origenResponse struct {
	Tipo string    `json:"tipo"`
	ID   uuid.UUID `json:"id"`
}

type gastoResponse struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"user_id"`
	Fecha           string         `json:"fecha"`
	MontoARSMinor   int64          `json:"monto_ars_minor"`
	MontoARS        string         `json:"monto_ars"`
	MontoUSDMinor   *int64         `json:"monto_usd_minor,omitempty"`
	MontoUSD        string         `json:"monto_usd,omitempty"`
	MonedaOrigen    string         `json:"moneda_origen"`
	TipoCambioUsado string         `json:"tipo_cambio_usado,omitempty"`
	Descripcion     string         `json:"descripcion"`
	CategoriaID     uuid.UUID      `json:"categoria_id"`
	ImportanciaID   uuid.UUID      `json:"importancia_id"`
	TipoPagoID      uuid.UUID      `json:"tipo_pago_id"`
	TarjetaID       *uuid.UUID     `json:"tarjeta_id,omitempty"`
	Frecuencia      string         `json:"frecuencia,omitempty"`
	Origen          origenResponse `json:"origen"`
	CuotasTotales   int            `json:"cuotas_totales,omitempty"`
	CuotasPagadas   int            `json:"cuotas_pagadas,omitempty"`
}

func toGastoResponse(g finanzas.Gasto) gastoResponse {
	arsMinor, _ := g.MontoARS.MinorUnits()
	out := gastoResponse{
		ID:            g.ID,
		UserID:        g.UserID,
		Fecha:         g.Fecha.Format(fechaLayout),
		MontoARSMinor: arsMinor,
		MontoARS:      g.MontoARS.String(),
		MonedaOrigen:  string(g.MonedaOrigen),
		Descripcion:   g.Descripcion,
		CategoriaID:   g.CategoriaID,
		ImportanciaID: g.ImportanciaID,
		TipoPagoID:    g.TipoPagoID,
		TarjetaID:     g.TarjetaID,
		Frecuencia:    string(g.Frecuencia),
		Origen:        origenResponse{Tipo: string(g.Origen.Kind), ID: g.Origen.ID},
		CuotasTotales: g.CuotasTotales,
		CuotasPagadas: g.CuotasPagadas,
	}
	if g.MontoUSD != nil {
		usdMinor, _ := g.MontoUSD.MinorUnits()
		out.MontoUSDMinor = &usdMinor
		out.MontoUSD = g.MontoUSD.String()
	}
	if !g.TipoCambioUsado.IsZero() {
		out.TipoCambioUsado = g.TipoCambioUsado.String()
	}
	return out
}

// --- sources ---

type postTarjetaRequest struct {
	UserID            uuid.UUID `json:"user_id"`
	Nombre            string    `json:"nombre"`
	Tipo              string    `json:"tipo"`
	DiaMesCierre      int       `json:"dia_mes_cierre"`
	DiaMesVencimiento int       `json:"dia_mes_vencimiento"`
}

type tarjetaResponse struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Nombre            string    `json:"nombre"`
	Tipo              string    `json:"tipo"`
	DiaMesCierre      int       `json:"dia_mes_cierre"`
	DiaMesVencimiento int       `json:"dia_mes_vencimiento"`
}

type postGastoUnicoRequest struct {
	UserID               uuid.UUID  `json:"user_id"`
	Descripcion          string     `json:"descripcion"`
	MontoMinor           int64      `json:"monto_minor"`
	Moneda               string     `json:"moneda"`
	Fecha                time.Time  `json:"fecha"`
	CategoriaID          uuid.UUID  `json:"categoria_id"`
	ImportanciaID        uuid.UUID  `json:"importancia_id"`
	TipoPagoID           uuid.UUID  `json:"tipo_pago_id"`
	TarjetaID            *uuid.UUID `json:"tarjeta_id,omitempty"`
	TipoCambioReferencia string     `json:"tipo_cambio_referencia,omitempty"`
}

type gastoUnicoResponse struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	Descripcion          string     `json:"descripcion"`
	MontoMinor           int64      `json:"monto_minor"`
	Monto                string     `json:"monto"`
	Moneda               string     `json:"moneda"`
	Fecha                string     `json:"fecha"`
	CategoriaID          uuid.UUID  `json:"categoria_id"`
	ImportanciaID        uuid.UUID  `json:"importancia_id"`
	TipoPagoID           uuid.UUID  `json:"tipo_pago_id"`
	TarjetaID            *uuid.UUID `json:"tarjeta_id,omitempty"`
	TipoCambioReferencia string     `json:"tipo_cambio_referencia,omitempty"`
	Procesado            bool       `json:"procesado"`
}

func toGastoUnicoResponse(g finanzas.GastoUnico) gastoUnicoResponse {
	minor, _ := g.Monto.MinorUnits()
	out := gastoUnicoResponse{
		ID:            g.ID,
		UserID:        g.UserID,
		Descripcion:   g.Descripcion,
		MontoMinor:    minor,
		Monto:         g.Monto.String(),
		Moneda:        string(g.MonedaOrigen),
		Fecha:         g.Fecha.Format(fechaLayout),
		CategoriaID:   g.CategoriaID,
		ImportanciaID: g.ImportanciaID,
		TipoPagoID:    g.TipoPagoID,
		TarjetaID:     g.TarjetaID,
		Procesado:     g.Procesado,
	}
	if !g.TipoCambioReferencia.IsZero() {
		out.TipoCambioReferencia = g.TipoCambioReferencia.String()
	}
	return out
}

type postReglaRequest struct {
	UserID        uuid.UUID  `json:"user_id"`
	Descripcion   string     `json:"descripcion"`
	MontoMinor    int64      `json:"monto_minor"`
	MontoUSDMinor *int64     `json:"monto_usd_minor,omitempty"`
	Moneda        string     `json:"moneda"`
	DiaDePago     int        `json:"dia_de_pago"`
	MesDePago     int        `json:"mes_de_pago,omitempty"`
	Frecuencia    string     `json:"frecuencia"`
	CategoriaID   uuid.UUID  `json:"categoria_id"`
	ImportanciaID uuid.UUID  `json:"importancia_id"`
	TipoPagoID    uuid.UUID  `json:"tipo_pago_id"`
	TarjetaID     *uuid.UUID `json:"tarjeta_id,omitempty"`
	FechaInicio   *time.Time `json:"fecha_inicio,omitempty"`
	FechaFin      *time.Time `json:"fecha_fin,omitempty"`
}

type reglaResponse struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Descripcion   string     `json:"descripcion"`
	MontoMinor    int64      `json:"monto_minor"`
	Monto         string     `json:"monto"`
	MontoUSDMinor *int64     `json:"monto_usd_minor,omitempty"`
	Moneda        string     `json:"moneda"`
	DiaDePago     int        `json:"dia_de_pago"`
	MesDePago     int        `json:"mes_de_pago,omitempty"`
	Frecuencia    string     `json:"frecuencia"`
	CategoriaID   uuid.UUID  `json:"categoria_id"`
	ImportanciaID uuid.UUID  `json:"importancia_id"`
	TipoPagoID    uuid.UUID  `json:"tipo_pago_id"`
	TarjetaID     *uuid.UUID `json:"tarjeta_id,omitempty"`
	Activo        bool       `json:"activo"`
	FechaInicio   *string    `json:"fecha_inicio,omitempty"`
	FechaFin      *string    `json:"fecha_fin,omitempty"`
	UltimaFecha   *string    `json:"ultima_fecha_generado,omitempty"`
}

func toReglaResponse(r finanzas.ReglaRecurrente) reglaResponse {
	minor, _ := r.Monto.MinorUnits()
	out := reglaResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		Descripcion:   r.Descripcion,
		MontoMinor:    minor,
		Monto:         r.Monto.String(),
		Moneda:        string(r.MonedaOrigen),
		DiaDePago:     r.DiaDePago,
		MesDePago:     r.MesDePago,
		Frecuencia:    string(r.Frecuencia),
		CategoriaID:   r.CategoriaID,
		ImportanciaID: r.ImportanciaID,
		TipoPagoID:    r.TipoPagoID,
		TarjetaID:     r.TarjetaID,
		Activo:        r.Activo,
		FechaInicio:   fechaOpcional(r.FechaInicio),
		FechaFin:      fechaOpcional(r.FechaFin),
		UltimaFecha:   fechaOpcional(r.UltimaFechaGenerado),
	}
	if r.MontoUSD != nil {
		usdMinor, _ := r.MontoUSD.MinorUnits()
		out.MontoUSDMinor = &usdMinor
	}
	return out
}

func fechaOpcional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(fechaLayout)
	return &s
}

type postCompraRequest struct {
	UserID          uuid.UUID  `json:"user_id"`
	Descripcion     string     `json:"descripcion"`
	MontoTotalMinor int64      `json:"monto_total_minor"`
	Moneda          string     `json:"moneda"`
	CantidadCuotas  int        `json:"cantidad_cuotas"`
	Fecha           time.Time  `json:"fecha"`
	CategoriaID     uuid.UUID  `json:"categoria_id"`
	ImportanciaID   uuid.UUID  `json:"importancia_id"`
	TipoPagoID      uuid.UUID  `json:"tipo_pago_id"`
	TarjetaID       *uuid.UUID `json:"tarjeta_id,omitempty"`
}

type compraResponse struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Descripcion     string     `json:"descripcion"`
	MontoTotalMinor int64      `json:"monto_total_minor"`
	MontoTotal      string     `json:"monto_total"`
	Moneda          string     `json:"moneda"`
	CantidadCuotas  int        `json:"cantidad_cuotas"`
	Fecha           string     `json:"fecha"`
	CategoriaID     uuid.UUID  `json:"categoria_id"`
	ImportanciaID   uuid.UUID  `json:"importancia_id"`
	TipoPagoID      uuid.UUID  `json:"tipo_pago_id"`
	TarjetaID       *uuid.UUID `json:"tarjeta_id,omitempty"`
	PendienteCuotas bool       `json:"pendiente_cuotas"`
	FechaUltima     *string    `json:"fecha_ultima_cuota,omitempty"`
}

func toCompraResponse(c finanzas.Compra) compraResponse {
	minor, _ := c.MontoTotal.MinorUnits()
	return compraResponse{
		ID:              c.ID,
		UserID:          c.UserID,
		Descripcion:     c.Descripcion,
		MontoTotalMinor: minor,
		MontoTotal:      c.MontoTotal.String(),
		Moneda:          string(c.MonedaOrigen),
		CantidadCuotas:  c.CantidadCuotas,
		Fecha:           c.Fecha.Format(fechaLayout),
		CategoriaID:     c.CategoriaID,
		ImportanciaID:   c.ImportanciaID,
		TipoPagoID:      c.TipoPagoID,
		TarjetaID:       c.TarjetaID,
		PendienteCuotas: c.PendienteCuotas,
		FechaUltima:     fechaOpcional(c.FechaUltimaCuotaGenerada),
	}
}

// --- exchange rates ---

type conversionRequest struct {
	MontoMinor int64  `json:"monto_minor"`
	Moneda     string `json:"moneda"`
}

type conversionResponse struct {
	MontoARSMinor   int64  `json:"monto_ars_minor"`
	MontoARS        string `json:"monto_ars"`
	MontoUSDMinor   *int64 `json:"monto_usd_minor,omitempty"`
	MontoUSD        string `json:"monto_usd,omitempty"`
	TipoCambioUsado string `json:"tipo_cambio_usado,omitempty"`
}


type putTipoCambioRequest struct {
	Fecha       *time.Time `json:"fecha,omitempty"`
	ValorCompra string     `json:"valor_compra"`
	ValorVenta  string     `json:"valor_venta"`
}

type tipoCambioResponse struct {
	Fecha       string `json:"fecha"`
	ValorCompra string `json:"valor_compra"`
	ValorVenta  string `json:"valor_venta"`
	Fuente      string `json:"fuente"`
	Activo      bool   `json:"activo"`
}

func toTipoCambioResponse(tc finanzas.TipoCambio) tipoCambioResponse {
	return tipoCambioResponse{
		Fecha:       tc.Fecha.Format(fechaLayout),
		ValorCompra: tc.ValorCompra.String(),
		ValorVenta:  tc.ValorVenta.String(),
		Fuente:      tc.Fuente,
		Activo:      tc.Activo,
	}
}
