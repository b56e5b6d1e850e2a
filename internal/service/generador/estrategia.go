package generador

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mlorenzo/finanzas/internal/finanzas"
	"github.com/mlorenzo/finanzas/internal/service/cambio"
)

// fuenteComun carries the fields every source kind contributes to a Gasto
// draft: ownership, description and the three mandatory catalog references.
type fuenteComun struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Descripcion   string
	CategoriaID   uuid.UUID
	ImportanciaID uuid.UUID
	TipoPagoID    uuid.UUID
	TarjetaID     *uuid.UUID
}

// validarFuenteComun checks the fields required by every strategy.
func validarFuenteComun(f fuenteComun) bool {
	return f.ID != uuid.Nil &&
		f.UserID != uuid.Nil &&
		f.CategoriaID != uuid.Nil &&
		f.ImportanciaID != uuid.Nil &&
		f.TipoPagoID != uuid.Nil
}

// borradorGasto merges the source's common fields with the strategy-specific
// date and amounts, stamping the origin reference. Pure assembly, no I/O.
func borradorGasto(kind finanzas.OriginKind, f fuenteComun, fecha time.Time, m cambio.Montos) finanzas.Gasto {
	return finanzas.Gasto{
		ID:              uuid.New(),
		UserID:          f.UserID,
		Fecha:           finanzas.SoloFecha(fecha),
		MontoARS:        m.ARS,
		MontoUSD:        m.USD,
		TipoCambioUsado: m.TipoCambioUsado,
		Descripcion:     f.Descripcion,
		CategoriaID:     f.CategoriaID,
		ImportanciaID:   f.ImportanciaID,
		TipoPagoID:      f.TipoPagoID,
		TarjetaID:       f.TarjetaID,
		Origen:          finanzas.OriginRef{Kind: kind, ID: f.ID},
	}
}

// montoPositivo reports whether an amount is set and greater than zero.
func montoPositivo(a money.Amount) bool {
	minor, ok := a.MinorUnits()
	return ok && minor > 0
}
