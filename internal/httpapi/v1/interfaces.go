package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/mlorenzo/finanzas/internal/finanzas"
)

// Store is the storage surface the API needs beyond the services: source
// row creation and the read-side listings.
type Store interface {
	CreateTarjeta(ctx context.Context, t finanzas.Tarjeta) (finanzas.Tarjeta, error)
	CreateGastoUnico(ctx context.Context, g finanzas.GastoUnico) (finanzas.GastoUnico, error)
	CreateGastoRecurrente(ctx context.Context, g finanzas.GastoRecurrente) (finanzas.GastoRecurrente, error)
	CreateDebitoAutomatico(ctx context.Context, d finanzas.DebitoAutomatico) (finanzas.DebitoAutomatico, error)
	CreateCompra(ctx context.Context, c finanzas.Compra) (finanzas.Compra, error)

	GastosPorUsuario(ctx context.Context, userID uuid.UUID) ([]finanzas.Gasto, error)
	GastosUnicosPendientes(ctx context.Context, userID uuid.UUID) ([]finanzas.GastoUnico, error)
	GastosRecurrentesActivos(ctx context.Context, userID uuid.UUID) ([]finanzas.GastoRecurrente, error)
	DebitosAutomaticosActivos(ctx context.Context, userID uuid.UUID) ([]finanzas.DebitoAutomatico, error)
	ComprasPendientes(ctx context.Context, userID uuid.UUID) ([]finanzas.Compra, error)
}
