package generador

import (
	"context"
	"time"

	"github.com/mlorenzo/finanzas/internal/finanzas"
)

// estrategiaDebito materializes débitos automáticos. It differs from the
// recurring strategy in three ways: the payment day degrades to the last day
// of short months, generation is tracked by (month, year) pair rather than
// exact date, and FechaFin is authoritative regardless of the active flag.
type estrategiaDebito struct{}

func (estrategiaDebito) Tipo() finanzas.OriginKind { return finanzas.OrigenDebitoAutomatico }

func (estrategiaDebito) DebeGenerar(d finanzas.DebitoAutomatico, hoy time.Time) bool {
	r := d.ReglaRecurrente
	if !r.Activo {
		return false
	}
	// FechaFin is permanent: past it, no generation even while still active.
	if r.FechaFin == nil || hoy.After(finanzas.SoloFecha(*r.FechaFin)) {
		return false
	}
	diaEfectivo := finanzas.ClampDia(hoy.Year(), hoy.Month(), r.DiaDePago)
	if hoy.Day() != diaEfectivo {
		return false
	}
	if r.MesDePago != 0 && int(hoy.Month()) != r.MesDePago {
		return false
	}
	if !dentroDeLimites(r, hoy) {
		return false
	}
	if r.UltimaFechaGenerado != nil {
		ultima := finanzas.SoloFecha(*r.UltimaFechaGenerado)
		if finanzas.MismoMes(ultima, hoy) {
			return false
		}
		// Non-monthly debits fire every N months, counted in month steps.
		if finanzas.MesesTranscurridos(ultima, hoy) < r.Frecuencia.Meses() {
			return false
		}
	}
	return true
}

func (e estrategiaDebito) Generar(ctx context.Context, tx Tx, d finanzas.DebitoAutomatico, fecha time.Time, tc *finanzas.TipoCambio) (*finanzas.Gasto, error) {
	return generarDesdeRegla(ctx, tx, e.Tipo(), d.ReglaRecurrente, fecha, tc)
}
