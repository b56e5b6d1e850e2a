package finanzas

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

// Moneda enumerates the two currencies the system supports.
type Moneda string

const (
	MonedaARS Moneda = "ARS"
	MonedaUSD Moneda = "USD"
)

// Valida reports whether the tag is one of the supported currencies.
func (m Moneda) Valida() bool { return m == MonedaARS || m == MonedaUSD }

// Lado selects which side of a published rate a conversion uses.
type Lado string

const (
	LadoCompra Lado = "compra"
	LadoVenta  Lado = "venta"
)

// TipoTarjeta classifies a card.
type TipoTarjeta string

const (
	TarjetaCredito TipoTarjeta = "credito"
	TarjetaDebito  TipoTarjeta = "debito"
)

// User captures the owner of the financial data.
type User struct {
	ID    uuid.UUID
	Email *string
}

// Tarjeta represents a payment card. Credit cards carry a monthly billing
// cycle: statements close on DiaMesCierre and fall due on DiaMesVencimiento.
type Tarjeta struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Nombre            string
	Tipo              TipoTarjeta
	DiaMesCierre      int
	DiaMesVencimiento int
}

// Gasto is the materialized, immutable expense record written to the main
// expense table. It always points back at the source row that produced it
// through Origen.
type Gasto struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Fecha        time.Time
	MontoARS     money.Amount
	MontoUSD     *money.Amount
	MonedaOrigen Moneda
	// TipoCambioUsado is the sell-rate snapshot applied at generation time.
	// Zero when no conversion was performed.
	TipoCambioUsado decimal.Decimal
	Descripcion     string
	CategoriaID     uuid.UUID
	ImportanciaID   uuid.UUID
	TipoPagoID      uuid.UUID
	TarjetaID       *uuid.UUID
	Frecuencia      Frecuencia
	Origen          OriginRef
	// Installment bookkeeping, populated only for compra-origin gastos.
	CuotasTotales int
	CuotasPagadas int
}

// GastoUnico describes a single expense not yet materialized.
// Procesado flips false -> true exactly once, inside the same transaction
// that creates its Gasto, and never transitions back.
type GastoUnico struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Descripcion   string
	Monto         money.Amount
	MonedaOrigen  Moneda
	Fecha         time.Time
	CategoriaID   uuid.UUID
	ImportanciaID uuid.UUID
	TipoPagoID    uuid.UUID
	TarjetaID     *uuid.UUID
	// TipoCambioReferencia is an optional rate snapshot taken when the source
	// was recorded. Zero when unset; the current rate is used instead.
	TipoCambioReferencia decimal.Decimal
	Procesado            bool
}

// ReglaRecurrente holds the fields shared by recurring expenses and automatic
// debits: the schedule (day of month, optional month for annual rules), the
// optional validity window and the last-generated bookkeeping date.
type ReglaRecurrente struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Descripcion   string
	Monto         money.Amount
	MontoUSD      *money.Amount
	MonedaOrigen  Moneda
	DiaDePago     int
	MesDePago     int // 0 unless frequency is annual
	Frecuencia    Frecuencia
	CategoriaID   uuid.UUID
	ImportanciaID uuid.UUID
	TipoPagoID    uuid.UUID
	TarjetaID     *uuid.UUID
	Activo        bool
	FechaInicio   *time.Time
	FechaFin      *time.Time
	// UltimaFechaGenerado is monotonically non-decreasing and only updated
	// inside the transaction that creates the corresponding Gasto.
	UltimaFechaGenerado *time.Time
	TipoCambioReferencia decimal.Decimal
}

// GastoRecurrente is a periodic expense rule.
type GastoRecurrente struct {
	ReglaRecurrente
}

// DebitoAutomatico is a recurring charge pulled directly from an account.
// Unlike GastoRecurrente its FechaFin is mandatory and authoritative:
// generation stops permanently once today passes it.
type DebitoAutomatico struct {
	ReglaRecurrente
}

// Compra describes a purchase paid in one or more installments.
// The count of compra-origin gastos for this row never exceeds
// CantidadCuotas; once it reaches it, PendienteCuotas is forced false.
type Compra struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Descripcion    string
	MontoTotal     money.Amount
	MonedaOrigen   Moneda
	CantidadCuotas int
	Fecha          time.Time
	CategoriaID    uuid.UUID
	ImportanciaID  uuid.UUID
	TipoPagoID     uuid.UUID
	TarjetaID      *uuid.UUID
	// Tarjeta is the loaded card row when TarjetaID is set.
	Tarjeta                  *Tarjeta
	PendienteCuotas          bool
	FechaUltimaCuotaGenerada *time.Time
}

// TipoCambio is a daily ARS/USD reference rate. One row per date; the most
// recent active row is the authoritative current rate.
type TipoCambio struct {
	Fecha       time.Time
	ValorCompra decimal.Decimal
	ValorVenta  decimal.Decimal
	Fuente      string
	Activo      bool
}
