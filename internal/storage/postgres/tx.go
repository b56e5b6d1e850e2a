package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
)

// Tx wraps a pgx transaction behind the generation engine's write handle.
// Every bookkeeping update issued through it lands in the same database
// transaction as the gasto insert.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) CreateGasto(ctx context.Context, g finanzas.Gasto) (finanzas.Gasto, error) {
	_, err := t.tx.Exec(ctx, `
		insert into gastos (id, user_id, fecha, monto_ars_minor, monto_usd_minor, moneda_origen,
			tipo_cambio_usado_minor, descripcion, categoria_id, importancia_id,
			tipo_pago_id, tarjeta_id, frecuencia, tipo_origen, id_origen,
			cuotas_totales, cuotas_pagadas)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, g.ID, g.UserID, finanzas.SoloFecha(g.Fecha), minorDe(g.MontoARS), minorOpcional(g.MontoUSD),
		g.MonedaOrigen, rateMinorOpcional(g.TipoCambioUsado), g.Descripcion,
		g.CategoriaID, g.ImportanciaID, g.TipoPagoID, g.TarjetaID,
		frecuenciaOpcional(g.Frecuencia), g.Origen.Kind, g.Origen.ID,
		g.CuotasTotales, g.CuotasPagadas)
	if err != nil {
		return finanzas.Gasto{}, err
	}
	return g, nil
}

func frecuenciaOpcional(f finanzas.Frecuencia) *string {
	if f == "" {
		return nil
	}
	s := string(f)
	return &s
}

func (t *Tx) MarcarGastoUnicoProcesado(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `update gastos_unicos set procesado = true where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *Tx) ActualizarUltimaGeneracion(ctx context.Context, kind finanzas.OriginKind, id uuid.UUID, fecha time.Time) error {
	var table string
	switch kind {
	case finanzas.OrigenRecurrente:
		table = "gastos_recurrentes"
	case finanzas.OrigenDebitoAutomatico:
		table = "debitos_automaticos"
	default:
		return errs.ErrInvalid
	}
	tag, err := t.tx.Exec(ctx, `update `+table+` set ultima_fecha_generado = $1 where id = $2`,
		finanzas.SoloFecha(fecha), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *Tx) ActualizarEstadoCompra(ctx context.Context, id uuid.UUID, ultimaCuota time.Time, pendiente bool) error {
	tag, err := t.tx.Exec(ctx, `
		update compras set fecha_ultima_cuota = $1, pendiente_cuotas = $2 where id = $3
	`, finanzas.SoloFecha(ultimaCuota), pendiente, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CountGastosPorOrigen counts within the transaction, so staged inserts are
// visible to installment bookkeeping.
func (t *Tx) CountGastosPorOrigen(ctx context.Context, origen finanzas.OriginRef) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		select count(*) from gastos where tipo_origen = $1 and id_origen = $2
	`, origen.Kind, origen.ID).Scan(&n)
	return n, err
}

func (t *Tx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
