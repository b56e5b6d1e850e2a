package generador

import (
	"context"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
	"github.com/mlorenzo/finanzas/internal/service/cambio"
)

// estrategiaInmediata materializes gastos únicos. A one-off source is due as
// soon as it exists and is unprocessed; no date check applies.
type estrategiaInmediata struct{}

func (estrategiaInmediata) Tipo() finanzas.OriginKind { return finanzas.OrigenUnico }

func (estrategiaInmediata) DebeGenerar(g finanzas.GastoUnico) bool { return !g.Procesado }

func (estrategiaInmediata) ValidarFuente(g finanzas.GastoUnico) bool {
	return validarFuenteComun(comunDeUnico(g)) && montoPositivo(g.Monto) && !g.Fecha.IsZero()
}

func comunDeUnico(g finanzas.GastoUnico) fuenteComun {
	return fuenteComun{
		ID:            g.ID,
		UserID:        g.UserID,
		Descripcion:   g.Descripcion,
		CategoriaID:   g.CategoriaID,
		ImportanciaID: g.ImportanciaID,
		TipoPagoID:    g.TipoPagoID,
		TarjetaID:     g.TarjetaID,
	}
}

// Generar creates the gasto dated on the source's own date, normalized to a
// plain calendar date. Marking the source processed is the orchestrator's
// responsibility, in the same transaction.
func (e estrategiaInmediata) Generar(ctx context.Context, tx Tx, g finanzas.GastoUnico, tc *finanzas.TipoCambio) (*finanzas.Gasto, error) {
	if !e.ValidarFuente(g) {
		return nil, errs.ErrInvalidSource
	}
	// A reference-rate snapshot recorded with the source wins over the
	// run's current rate.
	if !g.TipoCambioReferencia.IsZero() {
		ref := finanzas.TipoCambio{
			Fecha:       finanzas.SoloFecha(g.Fecha),
			ValorCompra: g.TipoCambioReferencia,
			ValorVenta:  g.TipoCambioReferencia,
			Activo:      true,
		}
		tc = &ref
	}
	montos, err := cambio.CalcularAmbosMontos(g.Monto, g.MonedaOrigen, tc)
	if err != nil {
		return nil, err
	}
	gasto := borradorGasto(e.Tipo(), comunDeUnico(g), g.Fecha, montos)
	gasto.MonedaOrigen = g.MonedaOrigen
	created, err := tx.CreateGasto(ctx, gasto)
	if err != nil {
		return nil, err
	}
	return &created, nil
}
