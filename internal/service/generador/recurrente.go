package generador

import (
	"context"
	"time"

	"github.com/mlorenzo/finanzas/internal/finanzas"
	"github.com/mlorenzo/finanzas/internal/service/cambio"
)

// Shared logic for the two rule-driven strategies (gastos recurrentes and
// débitos automáticos): day-of-month scheduling, annual month gate, inclusive
// date boundaries and the same-day duplicate guard.

// validarRegla requires the common fields plus amount, day of month (1-31)
// and a known frequency.
func validarRegla(r finanzas.ReglaRecurrente) bool {
	return validarFuenteComun(comunDeRegla(r)) &&
		montoPositivo(r.Monto) &&
		r.DiaDePago >= 1 && r.DiaDePago <= 31 &&
		r.Frecuencia.Valida()
}

func comunDeRegla(r finanzas.ReglaRecurrente) fuenteComun {
	return fuenteComun{
		ID:            r.ID,
		UserID:        r.UserID,
		Descripcion:   r.Descripcion,
		CategoriaID:   r.CategoriaID,
		ImportanciaID: r.ImportanciaID,
		TipoPagoID:    r.TipoPagoID,
		TarjetaID:     r.TarjetaID,
	}
}

// dentroDeLimites checks the optional validity window, inclusive on both
// ends. An absent boundary imposes no constraint.
func dentroDeLimites(r finanzas.ReglaRecurrente, hoy time.Time) bool {
	if r.FechaInicio != nil && hoy.Before(finanzas.SoloFecha(*r.FechaInicio)) {
		return false
	}
	if r.FechaFin != nil && hoy.After(finanzas.SoloFecha(*r.FechaFin)) {
		return false
	}
	return true
}

// frecuenciaPermite enforces the minimum elapsed days between occurrences
// using the approximate interval table (semanal=7, mensual=30, anual=365).
// The table is intentionally not calendar-exact.
func frecuenciaPermite(r finanzas.ReglaRecurrente, hoy time.Time) bool {
	if r.UltimaFechaGenerado == nil {
		return true
	}
	transcurridos := int(hoy.Sub(finanzas.SoloFecha(*r.UltimaFechaGenerado)).Hours() / 24)
	return transcurridos >= r.Frecuencia.Dias()
}

// generarDesdeRegla builds and persists the gasto for a rule-driven source
// and advances UltimaFechaGenerado in the same transaction. Returns nil with
// no side effects when the rule fails validation.
func generarDesdeRegla(ctx context.Context, tx Tx, kind finanzas.OriginKind, r finanzas.ReglaRecurrente, fecha time.Time, tc *finanzas.TipoCambio) (*finanzas.Gasto, error) {
	if !validarRegla(r) {
		return nil, nil
	}
	montos, err := montosDeRegla(r, tc)
	if err != nil {
		return nil, err
	}
	g := borradorGasto(kind, comunDeRegla(r), fecha, montos)
	g.MonedaOrigen = r.MonedaOrigen
	g.Frecuencia = r.Frecuencia
	created, err := tx.CreateGasto(ctx, g)
	if err != nil {
		return nil, err
	}
	if err := tx.ActualizarUltimaGeneracion(ctx, kind, r.ID, fecha); err != nil {
		return nil, err
	}
	return &created, nil
}

// montosDeRegla prefers the pre-computed USD amount and reference-rate
// snapshot stored on the rule; otherwise it converts with the run's rate,
// falling back to the bare ARS amount when no rate is available.
func montosDeRegla(r finanzas.ReglaRecurrente, tc *finanzas.TipoCambio) (cambio.Montos, error) {
	if r.MontoUSD != nil {
		return cambio.Montos{
			ARS:             r.Monto,
			USD:             r.MontoUSD,
			TipoCambioUsado: r.TipoCambioReferencia,
		}, nil
	}
	moneda := r.MonedaOrigen
	if moneda == "" {
		moneda = finanzas.MonedaARS
	}
	return cambio.CalcularAmbosMontos(r.Monto, moneda, tc)
}

// estrategiaRecurrente materializes gastos recurrentes. The frequency
// interval gate lives in the orchestrator (frecuenciaPermite); this strategy
// only owns the exact-day scheduling rules.
type estrategiaRecurrente struct{}

func (estrategiaRecurrente) Tipo() finanzas.OriginKind { return finanzas.OrigenRecurrente }

func (estrategiaRecurrente) DebeGenerar(gr finanzas.GastoRecurrente, hoy time.Time) bool {
	r := gr.ReglaRecurrente
	if !r.Activo {
		return false
	}
	if hoy.Day() != r.DiaDePago {
		return false
	}
	if r.MesDePago != 0 && int(hoy.Month()) != r.MesDePago {
		return false
	}
	if !dentroDeLimites(r, hoy) {
		return false
	}
	if r.UltimaFechaGenerado != nil && finanzas.MismoDia(*r.UltimaFechaGenerado, hoy) {
		return false
	}
	return true
}

func (e estrategiaRecurrente) Generar(ctx context.Context, tx Tx, gr finanzas.GastoRecurrente, fecha time.Time, tc *finanzas.TipoCambio) (*finanzas.Gasto, error) {
	return generarDesdeRegla(ctx, tx, e.Tipo(), gr.ReglaRecurrente, fecha, tc)
}
