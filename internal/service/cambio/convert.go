package cambio

import (
	"time"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
)

// Montos carries both currency representations of one amount plus the rate
// snapshot used to produce them. USD is nil when no rate was available for an
// ARS-denominated amount.
type Montos struct {
	ARS             money.Amount
	USD             *money.Amount
	TipoCambioUsado decimal.Decimal
	FechaTC         time.Time
}

// decimalDeAmount converts a monetary amount to a scale-2 decimal.
func decimalDeAmount(a money.Amount) decimal.Decimal {
	minor, _ := a.MinorUnits()
	return decimal.MustNew(minor, 2)
}

// amountDeDecimal rounds d to 2 decimals and builds an amount in the given
// currency from its minor units.
func amountDeDecimal(moneda finanzas.Moneda, d decimal.Decimal) (money.Amount, error) {
	whole, frac, ok := d.Round(2).Int64(2)
	if !ok {
		return money.Amount{}, errs.ErrInvalid
	}
	return money.NewAmountFromMinorUnits(string(moneda), whole*100+frac)
}

// ladoDelTipoCambio picks the requested side of a rate.
func ladoDelTipoCambio(tc finanzas.TipoCambio, lado finanzas.Lado) decimal.Decimal {
	if lado == finanzas.LadoCompra {
		return tc.ValorCompra
	}
	return tc.ValorVenta
}

// ConvertirARSaUSD divides an ARS amount by the requested side of the rate,
// rounded to 2 decimals. Callers converting at the default side pass
// finanzas.LadoVenta.
func ConvertirARSaUSD(monto money.Amount, tc finanzas.TipoCambio, lado finanzas.Lado) (money.Amount, error) {
	valor := ladoDelTipoCambio(tc, lado)
	if !valor.IsPos() {
		return money.Amount{}, errs.ErrInvalidRate
	}
	q, err := decimalDeAmount(monto).Quo(valor)
	if err != nil {
		return money.Amount{}, err
	}
	return amountDeDecimal(finanzas.MonedaUSD, q)
}

// ConvertirUSDaARS multiplies a USD amount by the requested side of the rate,
// rounded to 2 decimals. Callers converting at the default side pass
// finanzas.LadoCompra.
func ConvertirUSDaARS(monto money.Amount, tc finanzas.TipoCambio, lado finanzas.Lado) (money.Amount, error) {
	valor := ladoDelTipoCambio(tc, lado)
	if !valor.IsPos() {
		return money.Amount{}, errs.ErrInvalidRate
	}
	p, err := decimalDeAmount(monto).Mul(valor)
	if err != nil {
		return money.Amount{}, err
	}
	return amountDeDecimal(finanzas.MonedaARS, p)
}

// CalcularAmbosMontos is the single entry point every generation strategy
// uses to populate the dual-currency fields of a Gasto. It is pure: the rate,
// when needed, must already be resolved by the caller.
//
// An ARS amount tolerates a missing rate (USD stays nil); a USD amount does
// not, since the ARS field is mandatory on every Gasto.
func CalcularAmbosMontos(monto money.Amount, moneda finanzas.Moneda, tc *finanzas.TipoCambio) (Montos, error) {
	switch moneda {
	case finanzas.MonedaARS:
		m := Montos{ARS: monto}
		if tc != nil {
			usd, err := ConvertirARSaUSD(monto, *tc, finanzas.LadoVenta)
			if err != nil {
				return Montos{}, err
			}
			m.USD = &usd
			m.TipoCambioUsado = tc.ValorVenta
			m.FechaTC = tc.Fecha
		}
		return m, nil
	case finanzas.MonedaUSD:
		if tc == nil {
			return Montos{}, errs.ErrNoRateConfigured
		}
		ars, err := ConvertirUSDaARS(monto, *tc, finanzas.LadoCompra)
		if err != nil {
			return Montos{}, err
		}
		usd := monto
		return Montos{ARS: ars, USD: &usd, TipoCambioUsado: tc.ValorVenta, FechaTC: tc.Fecha}, nil
	default:
		return Montos{}, errs.ErrInvalidCurrency
	}
}
