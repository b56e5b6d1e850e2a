package postgres

// Package postgres provides a pgx-backed storage implementation that
// satisfies the repository and writer interfaces used by the services.
//
// It is intentionally small and explicit: mapping between domain entities
// and SQL rows, plus the per-candidate transactions the generation engine
// relies on. Monetary amounts are persisted as minor units (bigint), rates
// as minor units at scale 2.
//
// Expected schema (simplified):
//
//	tarjetas(id uuid pk, user_id uuid, nombre text, tipo text,
//	         dia_mes_cierre int, dia_mes_vencimiento int)
//	gastos(id uuid pk, user_id uuid, fecha date, monto_ars_minor bigint,
//	       monto_usd_minor bigint null, moneda_origen text,
//	       tipo_cambio_usado_minor bigint null, descripcion text,
//	       categoria_id uuid, importancia_id uuid, tipo_pago_id uuid,
//	       tarjeta_id uuid null, frecuencia text null, tipo_origen text,
//	       id_origen uuid, cuotas_totales int, cuotas_pagadas int)
//	gastos_unicos(id uuid pk, ..., tipo_cambio_referencia_minor bigint null,
//	              procesado bool)
//	gastos_recurrentes / debitos_automaticos(id uuid pk, ..., dia_de_pago int,
//	              mes_de_pago int, frecuencia text, activo bool,
//	              fecha_inicio date null, fecha_fin date null,
//	              ultima_fecha_generado date null)
//	compras(id uuid pk, ..., monto_total_minor bigint, cantidad_cuotas int,
//	        fecha date, pendiente_cuotas bool, fecha_ultima_cuota date null)
//	tipos_cambio(fecha date pk, valor_compra_minor bigint,
//	             valor_venta_minor bigint, fuente text, activo bool)
//	categorias_gasto(id uuid pk), importancias_gasto(id uuid pk),
//	tipos_pago(id uuid pk)

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
	"github.com/mlorenzo/finanzas/internal/service/generador"
)

// Store holds a pgx connection pool and implements the read/write
// interfaces used across the service layer. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// --- amount/rate mapping helpers ---

func minorDe(a money.Amount) int64 {
	minor, _ := a.MinorUnits()
	return minor
}

func amountDe(moneda finanzas.Moneda, minor int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(string(moneda), minor)
	return a
}

func minorOpcional(a *money.Amount) *int64 {
	if a == nil {
		return nil
	}
	minor, _ := a.MinorUnits()
	return &minor
}

func rateDe(minor int64) decimal.Decimal { return decimal.MustNew(minor, 2) }

func rateMinor(d decimal.Decimal) int64 {
	whole, frac, _ := d.Round(2).Int64(2)
	return whole*100 + frac
}

func rateMinorOpcional(d decimal.Decimal) *int64 {
	if d.IsZero() {
		return nil
	}
	m := rateMinor(d)
	return &m
}

// --- Source writes (API surface) ---

func (s *Store) CreateTarjeta(ctx context.Context, t finanzas.Tarjeta) (finanzas.Tarjeta, error) {
	_, err := s.pool.Exec(ctx, `
		insert into tarjetas (id, user_id, nombre, tipo, dia_mes_cierre, dia_mes_vencimiento)
		values ($1,$2,$3,$4,$5,$6)
	`, t.ID, t.UserID, t.Nombre, t.Tipo, t.DiaMesCierre, t.DiaMesVencimiento)
	if err != nil {
		return finanzas.Tarjeta{}, err
	}
	return t, nil
}

func (s *Store) CreateGastoUnico(ctx context.Context, g finanzas.GastoUnico) (finanzas.GastoUnico, error) {
	_, err := s.pool.Exec(ctx, `
		insert into gastos_unicos (id, user_id, descripcion, monto_minor, moneda_origen, fecha,
			categoria_id, importancia_id, tipo_pago_id, tarjeta_id,
			tipo_cambio_referencia_minor, procesado)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, g.ID, g.UserID, g.Descripcion, minorDe(g.Monto), g.MonedaOrigen, finanzas.SoloFecha(g.Fecha),
		g.CategoriaID, g.ImportanciaID, g.TipoPagoID, g.TarjetaID,
		rateMinorOpcional(g.TipoCambioReferencia), g.Procesado)
	if err != nil {
		return finanzas.GastoUnico{}, err
	}
	return g, nil
}

func (s *Store) CreateGastoRecurrente(ctx context.Context, g finanzas.GastoRecurrente) (finanzas.GastoRecurrente, error) {
	r := g.ReglaRecurrente
	_, err := s.pool.Exec(ctx, `
		insert into gastos_recurrentes (id, user_id, descripcion, monto_minor, monto_usd_minor,
			moneda_origen, dia_de_pago, mes_de_pago, frecuencia,
			categoria_id, importancia_id, tipo_pago_id, tarjeta_id,
			activo, fecha_inicio, fecha_fin, ultima_fecha_generado)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, r.ID, r.UserID, r.Descripcion, minorDe(r.Monto), minorOpcional(r.MontoUSD),
		r.MonedaOrigen, r.DiaDePago, r.MesDePago, r.Frecuencia,
		r.CategoriaID, r.ImportanciaID, r.TipoPagoID, r.TarjetaID,
		r.Activo, r.FechaInicio, r.FechaFin, r.UltimaFechaGenerado)
	if err != nil {
		return finanzas.GastoRecurrente{}, err
	}
	return g, nil
}

func (s *Store) CreateDebitoAutomatico(ctx context.Context, d finanzas.DebitoAutomatico) (finanzas.DebitoAutomatico, error) {
	r := d.ReglaRecurrente
	_, err := s.pool.Exec(ctx, `
		insert into debitos_automaticos (id, user_id, descripcion, monto_minor, monto_usd_minor,
			moneda_origen, dia_de_pago, mes_de_pago, frecuencia,
			categoria_id, importancia_id, tipo_pago_id, tarjeta_id,
			activo, fecha_inicio, fecha_fin, ultima_fecha_generado)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, r.ID, r.UserID, r.Descripcion, minorDe(r.Monto), minorOpcional(r.MontoUSD),
		r.MonedaOrigen, r.DiaDePago, r.MesDePago, r.Frecuencia,
		r.CategoriaID, r.ImportanciaID, r.TipoPagoID, r.TarjetaID,
		r.Activo, r.FechaInicio, r.FechaFin, r.UltimaFechaGenerado)
	if err != nil {
		return finanzas.DebitoAutomatico{}, err
	}
	return d, nil
}

func (s *Store) CreateCompra(ctx context.Context, c finanzas.Compra) (finanzas.Compra, error) {
	_, err := s.pool.Exec(ctx, `
		insert into compras (id, user_id, descripcion, monto_total_minor, moneda_origen,
			cantidad_cuotas, fecha, categoria_id, importancia_id, tipo_pago_id, tarjeta_id,
			pendiente_cuotas, fecha_ultima_cuota)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, c.ID, c.UserID, c.Descripcion, minorDe(c.MontoTotal), c.MonedaOrigen,
		c.CantidadCuotas, finanzas.SoloFecha(c.Fecha), c.CategoriaID, c.ImportanciaID,
		c.TipoPagoID, c.TarjetaID, c.PendienteCuotas, c.FechaUltimaCuotaGenerada)
	if err != nil {
		return finanzas.Compra{}, err
	}
	return c, nil
}

// --- Candidate scans ---

// userFilter appends an optional user clause; uuid.Nil means all users.
func userFilter(base string, userID uuid.UUID) (string, []any) {
	if userID == uuid.Nil {
		return base, nil
	}
	return base + " and user_id = $1", []any{userID}
}

func (s *Store) GastosUnicosPendientes(ctx context.Context, userID uuid.UUID) ([]finanzas.GastoUnico, error) {
	q, args := userFilter(`
		select id, user_id, descripcion, monto_minor, moneda_origen, fecha,
			categoria_id, importancia_id, tipo_pago_id, tarjeta_id,
			tipo_cambio_referencia_minor, procesado
		from gastos_unicos
		where procesado = false`, userID)
	rows, err := s.pool.Query(ctx, q+" order by fecha asc, id asc", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finanzas.GastoUnico, 0)
	for rows.Next() {
		var g finanzas.GastoUnico
		var montoMinor int64
		var refMinor *int64
		if err := rows.Scan(&g.ID, &g.UserID, &g.Descripcion, &montoMinor, &g.MonedaOrigen, &g.Fecha,
			&g.CategoriaID, &g.ImportanciaID, &g.TipoPagoID, &g.TarjetaID,
			&refMinor, &g.Procesado); err != nil {
			return nil, err
		}
		g.Monto = amountDe(g.MonedaOrigen, montoMinor)
		if refMinor != nil {
			g.TipoCambioReferencia = rateDe(*refMinor)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) scanReglas(ctx context.Context, table string, userID uuid.UUID) ([]finanzas.ReglaRecurrente, error) {
	q, args := userFilter(`
		select id, user_id, descripcion, monto_minor, monto_usd_minor, moneda_origen,
			dia_de_pago, mes_de_pago, frecuencia,
			categoria_id, importancia_id, tipo_pago_id, tarjeta_id,
			activo, fecha_inicio, fecha_fin, ultima_fecha_generado
		from `+table+`
		where activo = true`, userID)
	rows, err := s.pool.Query(ctx, q+" order by id asc", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finanzas.ReglaRecurrente, 0)
	for rows.Next() {
		var r finanzas.ReglaRecurrente
		var montoMinor int64
		var usdMinor *int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.Descripcion, &montoMinor, &usdMinor, &r.MonedaOrigen,
			&r.DiaDePago, &r.MesDePago, &r.Frecuencia,
			&r.CategoriaID, &r.ImportanciaID, &r.TipoPagoID, &r.TarjetaID,
			&r.Activo, &r.FechaInicio, &r.FechaFin, &r.UltimaFechaGenerado); err != nil {
			return nil, err
		}
		r.Monto = amountDe(r.MonedaOrigen, montoMinor)
		if usdMinor != nil {
			usd := amountDe(finanzas.MonedaUSD, *usdMinor)
			r.MontoUSD = &usd
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GastosRecurrentesActivos(ctx context.Context, userID uuid.UUID) ([]finanzas.GastoRecurrente, error) {
	reglas, err := s.scanReglas(ctx, "gastos_recurrentes", userID)
	if err != nil {
		return nil, err
	}
	out := make([]finanzas.GastoRecurrente, 0, len(reglas))
	for _, r := range reglas {
		out = append(out, finanzas.GastoRecurrente{ReglaRecurrente: r})
	}
	return out, nil
}

func (s *Store) DebitosAutomaticosActivos(ctx context.Context, userID uuid.UUID) ([]finanzas.DebitoAutomatico, error) {
	reglas, err := s.scanReglas(ctx, "debitos_automaticos", userID)
	if err != nil {
		return nil, err
	}
	out := make([]finanzas.DebitoAutomatico, 0, len(reglas))
	for _, r := range reglas {
		out = append(out, finanzas.DebitoAutomatico{ReglaRecurrente: r})
	}
	return out, nil
}

func (s *Store) ComprasPendientes(ctx context.Context, userID uuid.UUID) ([]finanzas.Compra, error) {
	q := `
		select c.id, c.user_id, c.descripcion, c.monto_total_minor, c.moneda_origen,
			c.cantidad_cuotas, c.fecha, c.categoria_id, c.importancia_id, c.tipo_pago_id,
			c.tarjeta_id, c.pendiente_cuotas, c.fecha_ultima_cuota,
			t.id, t.user_id, t.nombre, t.tipo, t.dia_mes_cierre, t.dia_mes_vencimiento
		from compras c
		left join tarjetas t on t.id = c.tarjeta_id
		where c.pendiente_cuotas = true`
	var args []any
	if userID != uuid.Nil {
		q += " and c.user_id = $1"
		args = append(args, userID)
	}
	rows, err := s.pool.Query(ctx, q+" order by c.fecha asc, c.id asc", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finanzas.Compra, 0)
	for rows.Next() {
		var c finanzas.Compra
		var montoMinor int64
		var tID, tUserID *uuid.UUID
		var tNombre, tTipo *string
		var tCierre, tVenc *int
		if err := rows.Scan(&c.ID, &c.UserID, &c.Descripcion, &montoMinor, &c.MonedaOrigen,
			&c.CantidadCuotas, &c.Fecha, &c.CategoriaID, &c.ImportanciaID, &c.TipoPagoID,
			&c.TarjetaID, &c.PendienteCuotas, &c.FechaUltimaCuotaGenerada,
			&tID, &tUserID, &tNombre, &tTipo, &tCierre, &tVenc); err != nil {
			return nil, err
		}
		c.MontoTotal = amountDe(c.MonedaOrigen, montoMinor)
		if tID != nil {
			c.Tarjeta = &finanzas.Tarjeta{
				ID:                *tID,
				UserID:            *tUserID,
				Nombre:            *tNombre,
				Tipo:              finanzas.TipoTarjeta(*tTipo),
				DiaMesCierre:      *tCierre,
				DiaMesVencimiento: *tVenc,
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Gasto reads ---

func (s *Store) CountGastosPorOrigen(ctx context.Context, origen finanzas.OriginRef) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		select count(*) from gastos where tipo_origen = $1 and id_origen = $2
	`, origen.Kind, origen.ID).Scan(&n)
	return n, err
}

func (s *Store) GastosPorUsuario(ctx context.Context, userID uuid.UUID) ([]finanzas.Gasto, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, fecha, monto_ars_minor, monto_usd_minor, moneda_origen,
			tipo_cambio_usado_minor, descripcion, categoria_id, importancia_id,
			tipo_pago_id, tarjeta_id, frecuencia, tipo_origen, id_origen,
			cuotas_totales, cuotas_pagadas
		from gastos
		where user_id = $1
		order by fecha asc, id asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finanzas.Gasto, 0)
	for rows.Next() {
		g, err := scanGasto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGasto(row pgx.Row) (finanzas.Gasto, error) {
	var g finanzas.Gasto
	var arsMinor int64
	var usdMinor, tcMinor *int64
	var frecuencia *string
	if err := row.Scan(&g.ID, &g.UserID, &g.Fecha, &arsMinor, &usdMinor, &g.MonedaOrigen,
		&tcMinor, &g.Descripcion, &g.CategoriaID, &g.ImportanciaID,
		&g.TipoPagoID, &g.TarjetaID, &frecuencia, &g.Origen.Kind, &g.Origen.ID,
		&g.CuotasTotales, &g.CuotasPagadas); err != nil {
		return finanzas.Gasto{}, err
	}
	g.MontoARS = amountDe(finanzas.MonedaARS, arsMinor)
	if usdMinor != nil {
		usd := amountDe(finanzas.MonedaUSD, *usdMinor)
		g.MontoUSD = &usd
	}
	if tcMinor != nil {
		g.TipoCambioUsado = rateDe(*tcMinor)
	}
	if frecuencia != nil {
		g.Frecuencia = finanzas.Frecuencia(*frecuencia)
	}
	return g, nil
}

// CheckGastoRefs verifies the catalog rows a draft will reference exist.
func (s *Store) CheckGastoRefs(ctx context.Context, _ uuid.UUID, categoriaID, importanciaID, tipoPagoID uuid.UUID) error {
	var okCat, okImp, okPago bool
	err := s.pool.QueryRow(ctx, `
		select
			exists(select 1 from categorias_gasto where id = $1),
			exists(select 1 from importancias_gasto where id = $2),
			exists(select 1 from tipos_pago where id = $3)
	`, categoriaID, importanciaID, tipoPagoID).Scan(&okCat, &okImp, &okPago)
	if err != nil {
		return err
	}
	if !okCat || !okImp || !okPago {
		return errs.ErrMissingForeignKey
	}
	return nil
}

// --- Exchange rates ---

func (s *Store) UpsertTipoCambio(ctx context.Context, tc finanzas.TipoCambio) (finanzas.TipoCambio, error) {
	_, err := s.pool.Exec(ctx, `
		insert into tipos_cambio (fecha, valor_compra_minor, valor_venta_minor, fuente, activo)
		values ($1,$2,$3,$4,$5)
		on conflict (fecha) do update
		set valor_compra_minor = excluded.valor_compra_minor,
		    valor_venta_minor = excluded.valor_venta_minor,
		    fuente = excluded.fuente,
		    activo = excluded.activo
	`, finanzas.SoloFecha(tc.Fecha), rateMinor(tc.ValorCompra), rateMinor(tc.ValorVenta), tc.Fuente, tc.Activo)
	if err != nil {
		return finanzas.TipoCambio{}, err
	}
	return tc, nil
}

func scanTipoCambio(row pgx.Row) (finanzas.TipoCambio, error) {
	var tc finanzas.TipoCambio
	var compraMinor, ventaMinor int64
	if err := row.Scan(&tc.Fecha, &compraMinor, &ventaMinor, &tc.Fuente, &tc.Activo); err != nil {
		return finanzas.TipoCambio{}, err
	}
	tc.ValorCompra = rateDe(compraMinor)
	tc.ValorVenta = rateDe(ventaMinor)
	return tc, nil
}

func (s *Store) LatestTipoCambio(ctx context.Context) (finanzas.TipoCambio, error) {
	tc, err := scanTipoCambio(s.pool.QueryRow(ctx, `
		select fecha, valor_compra_minor, valor_venta_minor, fuente, activo
		from tipos_cambio where activo = true
		order by fecha desc limit 1
	`))
	if errors.Is(err, pgx.ErrNoRows) {
		return finanzas.TipoCambio{}, errs.ErrNotFound
	}
	return tc, err
}

func (s *Store) TipoCambioPorFecha(ctx context.Context, fecha time.Time) (finanzas.TipoCambio, error) {
	tc, err := scanTipoCambio(s.pool.QueryRow(ctx, `
		select fecha, valor_compra_minor, valor_venta_minor, fuente, activo
		from tipos_cambio where fecha = $1 and activo = true
	`, finanzas.SoloFecha(fecha)))
	if errors.Is(err, pgx.ErrNoRows) {
		return finanzas.TipoCambio{}, errs.ErrNotFound
	}
	return tc, err
}

func (s *Store) TipoCambioAnterior(ctx context.Context, fecha time.Time) (finanzas.TipoCambio, error) {
	tc, err := scanTipoCambio(s.pool.QueryRow(ctx, `
		select fecha, valor_compra_minor, valor_venta_minor, fuente, activo
		from tipos_cambio where fecha <= $1 and activo = true
		order by fecha desc limit 1
	`, finanzas.SoloFecha(fecha)))
	if errors.Is(err, pgx.ErrNoRows) {
		return finanzas.TipoCambio{}, errs.ErrNotFound
	}
	return tc, err
}

func (s *Store) TiposCambio(ctx context.Context, desde, hasta *time.Time, limit int) ([]finanzas.TipoCambio, error) {
	q := `
		select fecha, valor_compra_minor, valor_venta_minor, fuente, activo
		from tipos_cambio where activo = true`
	var args []any
	if desde != nil {
		args = append(args, finanzas.SoloFecha(*desde))
		q += fmt.Sprintf(" and fecha >= $%d", len(args))
	}
	if hasta != nil {
		args = append(args, finanzas.SoloFecha(*hasta))
		q += fmt.Sprintf(" and fecha <= $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(" order by fecha desc limit $%d", len(args))
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]finanzas.TipoCambio, 0)
	for rows.Next() {
		tc, err := scanTipoCambio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// --- Transactions ---

// BeginTx opens a database transaction implementing the generation engine's
// scoped write handle.
func (s *Store) BeginTx(ctx context.Context) (generador.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}
