package generador

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/govalues/money"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
	"github.com/mlorenzo/finanzas/internal/service/cambio"
)

// estrategiaCuotas materializes installments for purchases.
//
// Due-date rules:
//   - single installment, cash/debit: due on the purchase date.
//   - single installment, credit card: due on the card's vencimiento day —
//     this month if the purchase was on or before the closing day, next
//     month otherwise.
//   - multiple installments: one per calendar month from the anchor date
//     (purchase date, or the first credit-card due date), clamping the
//     day-of-month to the last day of short months.
type estrategiaCuotas struct{}

func (estrategiaCuotas) Tipo() finanzas.OriginKind { return finanzas.OrigenCompra }

func (estrategiaCuotas) ValidarFuente(c finanzas.Compra) bool {
	return validarFuenteComun(comunDeCompra(c)) && montoPositivo(c.MontoTotal) && !c.Fecha.IsZero()
}

func comunDeCompra(c finanzas.Compra) fuenteComun {
	return fuenteComun{
		ID:            c.ID,
		UserID:        c.UserID,
		Descripcion:   c.Descripcion,
		CategoriaID:   c.CategoriaID,
		ImportanciaID: c.ImportanciaID,
		TipoPagoID:    c.TipoPagoID,
		TarjetaID:     c.TarjetaID,
	}
}

// esPagoConTarjetaCredito reports whether the purchase settles through a
// credit card's billing cycle.
func esPagoConTarjetaCredito(c finanzas.Compra) bool {
	return c.TarjetaID != nil && c.Tarjeta != nil && c.Tarjeta.Tipo == finanzas.TarjetaCredito
}

// cuotasTotales normalizes the installment count; zero means cash/single.
func cuotasTotales(c finanzas.Compra) int {
	if c.CantidadCuotas <= 1 {
		return 1
	}
	return c.CantidadCuotas
}

// montoCuota divides the total by the installment count, rounded to 2
// decimals. A single-installment purchase pays the full total.
func montoCuota(c finanzas.Compra) (money.Amount, error) {
	n := cuotasTotales(c)
	minor, ok := c.MontoTotal.MinorUnits()
	if !ok || minor <= 0 {
		return money.Amount{}, errs.ErrInvalidSource
	}
	if n == 1 {
		return c.MontoTotal, nil
	}
	per := int64(math.Round(float64(minor) / float64(n)))
	return money.NewAmountFromMinorUnits(c.MontoTotal.Curr().Code(), per)
}

// primeraFechaVencimiento resolves the first due date of a credit-card
// purchase from the card's billing cycle: on or before the closing day the
// statement falls due this month, after it the next month.
func primeraFechaVencimiento(c finanzas.Compra) (time.Time, error) {
	t := c.Tarjeta
	if t == nil || t.DiaMesCierre < 1 || t.DiaMesVencimiento < 1 {
		return time.Time{}, errs.ErrInvalidSource
	}
	fc := finanzas.SoloFecha(c.Fecha)
	y, m, _ := fc.Date()
	cierre := time.Date(y, m, finanzas.ClampDia(y, m, t.DiaMesCierre), 0, 0, 0, 0, time.UTC)
	venc := time.Date(y, m, finanzas.ClampDia(y, m, t.DiaMesVencimiento), 0, 0, 0, 0, time.UTC)
	if fc.After(cierre) {
		venc = finanzas.AgregarMeses(venc, 1)
	}
	return venc, nil
}

// fechaProximaCuota computes the due date of installment generadas+1.
func fechaProximaCuota(c finanzas.Compra, generadas int) (time.Time, error) {
	anchor := finanzas.SoloFecha(c.Fecha)
	if esPagoConTarjetaCredito(c) {
		var err error
		anchor, err = primeraFechaVencimiento(c)
		if err != nil {
			return time.Time{}, err
		}
	}
	return finanzas.AgregarMeses(anchor, generadas), nil
}

// DebeGenerar recounts already-generated installments and checks whether
// today is the computed due date of the next one.
func (e estrategiaCuotas) DebeGenerar(ctx context.Context, contador ContadorGastos, c finanzas.Compra, hoy time.Time) (bool, error) {
	if !c.PendienteCuotas {
		return false, nil
	}
	n := cuotasTotales(c)
	generadas, err := contador.CountGastosPorOrigen(ctx, finanzas.OriginRef{Kind: e.Tipo(), ID: c.ID})
	if err != nil {
		return false, err
	}
	if generadas >= n {
		return false, nil
	}
	if c.FechaUltimaCuotaGenerada != nil {
		if n == 1 {
			return false, nil
		}
		if finanzas.MismoMes(finanzas.SoloFecha(*c.FechaUltimaCuotaGenerada), hoy) {
			return false, nil
		}
	}
	due, err := fechaProximaCuota(c, generadas)
	if err != nil {
		// Misconfigured billing cycle: report it so the candidate lands in
		// the run's error list instead of vanishing as a skip.
		return false, err
	}
	return finanzas.MismoDia(hoy, due), nil
}

// Generar recomputes the due installment number inside the transaction,
// creates the gasto dated today (the actual generation date, not the
// theoretical due date) and flips the pending flag on the final installment.
func (e estrategiaCuotas) Generar(ctx context.Context, tx Tx, c finanzas.Compra, hoy time.Time, tc *finanzas.TipoCambio) (*finanzas.Gasto, error) {
	if !e.ValidarFuente(c) {
		return nil, errs.ErrInvalidSource
	}
	n := cuotasTotales(c)
	generadas, err := tx.CountGastosPorOrigen(ctx, finanzas.OriginRef{Kind: e.Tipo(), ID: c.ID})
	if err != nil {
		return nil, err
	}
	if generadas >= n {
		return nil, nil
	}
	k := generadas + 1

	monto, err := montoCuota(c)
	if err != nil {
		return nil, err
	}
	moneda := c.MonedaOrigen
	if moneda == "" {
		moneda = finanzas.MonedaARS
	}
	montos, err := cambio.CalcularAmbosMontos(monto, moneda, tc)
	if err != nil {
		return nil, err
	}

	g := borradorGasto(e.Tipo(), comunDeCompra(c), hoy, montos)
	g.MonedaOrigen = moneda
	g.Descripcion = fmt.Sprintf("%s - Cuota %d/%d", c.Descripcion, k, n)
	g.CuotasTotales = n
	g.CuotasPagadas = k
	created, err := tx.CreateGasto(ctx, g)
	if err != nil {
		return nil, err
	}
	if err := tx.ActualizarEstadoCompra(ctx, c.ID, hoy, k < n); err != nil {
		return nil, err
	}
	return &created, nil
}
