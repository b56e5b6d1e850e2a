package generador

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mlorenzo/finanzas/internal/finanzas"
)

// Repo defines the candidate scans and lookups the orchestrator needs.
// A uuid.Nil userID scopes a scan to every user (scheduler runs).
type Repo interface {
	GastosUnicosPendientes(ctx context.Context, userID uuid.UUID) ([]finanzas.GastoUnico, error)
	GastosRecurrentesActivos(ctx context.Context, userID uuid.UUID) ([]finanzas.GastoRecurrente, error)
	DebitosAutomaticosActivos(ctx context.Context, userID uuid.UUID) ([]finanzas.DebitoAutomatico, error)
	ComprasPendientes(ctx context.Context, userID uuid.UUID) ([]finanzas.Compra, error)
	CountGastosPorOrigen(ctx context.Context, origen finanzas.OriginRef) (int, error)
	// CheckGastoRefs verifies the catalog rows a draft will reference exist,
	// returning errs.ErrMissingForeignKey otherwise.
	CheckGastoRefs(ctx context.Context, userID, categoriaID, importanciaID, tipoPagoID uuid.UUID) error
}

// TxManager opens one transaction per candidate.
type TxManager interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is the scoped write handle every generation step runs through. The
// bookkeeping updates (processed flag, last-generated date, purchase state)
// must happen in the same transaction as the gasto insert.
type Tx interface {
	CreateGasto(ctx context.Context, g finanzas.Gasto) (finanzas.Gasto, error)
	MarcarGastoUnicoProcesado(ctx context.Context, id uuid.UUID) error
	ActualizarUltimaGeneracion(ctx context.Context, kind finanzas.OriginKind, id uuid.UUID, fecha time.Time) error
	ActualizarEstadoCompra(ctx context.Context, id uuid.UUID, ultimaCuota time.Time, pendiente bool) error
	CountGastosPorOrigen(ctx context.Context, origen finanzas.OriginRef) (int, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ContadorGastos counts generated gastos per origin; satisfied by Repo and Tx.
type ContadorGastos interface {
	CountGastosPorOrigen(ctx context.Context, origen finanzas.OriginRef) (int, error)
}

// Cambiador resolves the reference rate for a run.
type Cambiador interface {
	CurrentRate(ctx context.Context) (finanzas.TipoCambio, error)
}
