package generador

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func monto(t *testing.T, moneda finanzas.Moneda, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits(string(moneda), minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func minorDe(t *testing.T, a money.Amount) int64 {
	t.Helper()
	minor, ok := a.MinorUnits()
	if !ok {
		t.Fatalf("minor units overflow")
	}
	return minor
}

// fakeStore implements Repo, TxManager and the Tx write surface in memory,
// with the same staged-commit behavior as the real stores.
type fakeStore struct {
	unicos      map[uuid.UUID]finanzas.GastoUnico
	recurrentes map[uuid.UUID]finanzas.GastoRecurrente
	debitos     map[uuid.UUID]finanzas.DebitoAutomatico
	compras     map[uuid.UUID]finanzas.Compra
	gastos      []finanzas.Gasto
	catalogo    map[uuid.UUID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		unicos:      make(map[uuid.UUID]finanzas.GastoUnico),
		recurrentes: make(map[uuid.UUID]finanzas.GastoRecurrente),
		debitos:     make(map[uuid.UUID]finanzas.DebitoAutomatico),
		compras:     make(map[uuid.UUID]finanzas.Compra),
		catalogo:    make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) GastosUnicosPendientes(_ context.Context, _ uuid.UUID) ([]finanzas.GastoUnico, error) {
	out := make([]finanzas.GastoUnico, 0)
	for _, g := range f.unicos {
		if !g.Procesado {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) GastosRecurrentesActivos(_ context.Context, _ uuid.UUID) ([]finanzas.GastoRecurrente, error) {
	out := make([]finanzas.GastoRecurrente, 0)
	for _, g := range f.recurrentes {
		if g.Activo {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) DebitosAutomaticosActivos(_ context.Context, _ uuid.UUID) ([]finanzas.DebitoAutomatico, error) {
	out := make([]finanzas.DebitoAutomatico, 0)
	for _, d := range f.debitos {
		if d.Activo {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) ComprasPendientes(_ context.Context, _ uuid.UUID) ([]finanzas.Compra, error) {
	out := make([]finanzas.Compra, 0)
	for _, c := range f.compras {
		if c.PendienteCuotas {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CountGastosPorOrigen(_ context.Context, origen finanzas.OriginRef) (int, error) {
	n := 0
	for _, g := range f.gastos {
		if g.Origen == origen {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CheckGastoRefs(_ context.Context, _ uuid.UUID, categoriaID, importanciaID, tipoPagoID uuid.UUID) error {
	if !f.catalogo[categoriaID] || !f.catalogo[importanciaID] || !f.catalogo[tipoPagoID] {
		return errs.ErrMissingForeignKey
	}
	return nil
}

func (f *fakeStore) BeginTx(_ context.Context) (Tx, error) { return &fakeTx{s: f}, nil }

type ultimaFake struct {
	kind  finanzas.OriginKind
	id    uuid.UUID
	fecha time.Time
}

type compraFake struct {
	id        uuid.UUID
	ultima    time.Time
	pendiente bool
}

type fakeTx struct {
	s          *fakeStore
	gastos     []finanzas.Gasto
	procesados []uuid.UUID
	ultimas    []ultimaFake
	compras    []compraFake
}

func (t *fakeTx) CreateGasto(_ context.Context, g finanzas.Gasto) (finanzas.Gasto, error) {
	t.gastos = append(t.gastos, g)
	return g, nil
}

func (t *fakeTx) MarcarGastoUnicoProcesado(_ context.Context, id uuid.UUID) error {
	t.procesados = append(t.procesados, id)
	return nil
}

func (t *fakeTx) ActualizarUltimaGeneracion(_ context.Context, kind finanzas.OriginKind, id uuid.UUID, fecha time.Time) error {
	t.ultimas = append(t.ultimas, ultimaFake{kind: kind, id: id, fecha: finanzas.SoloFecha(fecha)})
	return nil
}

func (t *fakeTx) ActualizarEstadoCompra(_ context.Context, id uuid.UUID, ultimaCuota time.Time, pendiente bool) error {
	t.compras = append(t.compras, compraFake{id: id, ultima: finanzas.SoloFecha(ultimaCuota), pendiente: pendiente})
	return nil
}

func (t *fakeTx) CountGastosPorOrigen(ctx context.Context, origen finanzas.OriginRef) (int, error) {
	n, _ := t.s.CountGastosPorOrigen(ctx, origen)
	for _, g := range t.gastos {
		if g.Origen == origen {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	s := t.s
	s.gastos = append(s.gastos, t.gastos...)
	for _, id := range t.procesados {
		g := s.unicos[id]
		g.Procesado = true
		s.unicos[id] = g
	}
	for _, u := range t.ultimas {
		fecha := u.fecha
		switch u.kind {
		case finanzas.OrigenRecurrente:
			g := s.recurrentes[u.id]
			g.UltimaFechaGenerado = &fecha
			s.recurrentes[u.id] = g
		case finanzas.OrigenDebitoAutomatico:
			d := s.debitos[u.id]
			d.UltimaFechaGenerado = &fecha
			s.debitos[u.id] = d
		}
	}
	for _, ec := range t.compras {
		c := s.compras[ec.id]
		ultima := ec.ultima
		c.FechaUltimaCuotaGenerada = &ultima
		c.PendienteCuotas = ec.pendiente
		s.compras[ec.id] = c
	}
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.gastos, t.procesados, t.ultimas, t.compras = nil, nil, nil, nil
	return nil
}

// fakeCambiador returns a fixed rate, or an error when tc is nil.
type fakeCambiador struct {
	tc *finanzas.TipoCambio
}

func (f *fakeCambiador) CurrentRate(_ context.Context) (finanzas.TipoCambio, error) {
	if f.tc == nil {
		return finanzas.TipoCambio{}, errs.ErrNoRateConfigured
	}
	return *f.tc, nil
}

type fixture struct {
	store *fakeStore
	svc   *service
	user  uuid.UUID
	cat   uuid.UUID
	imp   uuid.UUID
	pago  uuid.UUID
}

func newFixture(t *testing.T, hoy time.Time, tc *finanzas.TipoCambio) *fixture {
	t.Helper()
	store := newFakeStore()
	f := &fixture{
		store: store,
		user:  uuid.New(),
		cat:   uuid.New(),
		imp:   uuid.New(),
		pago:  uuid.New(),
	}
	store.catalogo[f.cat] = true
	store.catalogo[f.imp] = true
	store.catalogo[f.pago] = true

	svc := New(store, store, &fakeCambiador{tc: tc}, testLogger()).(*service)
	svc.now = func() time.Time { return hoy }
	f.svc = svc
	return f
}

func tasa(ventaMinor int64) *finanzas.TipoCambio {
	return &finanzas.TipoCambio{
		Fecha:       time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		ValorCompra: decimal.MustNew(ventaMinor-5000, 2),
		ValorVenta:  decimal.MustNew(ventaMinor, 2),
		Fuente:      "manual",
		Activo:      true,
	}
}

func (f *fixture) unico(t *testing.T, minor int64, moneda finanzas.Moneda, fecha time.Time) finanzas.GastoUnico {
	t.Helper()
	g := finanzas.GastoUnico{
		ID:            uuid.New(),
		UserID:        f.user,
		Descripcion:   "compra de prueba",
		Monto:         monto(t, moneda, minor),
		MonedaOrigen:  moneda,
		Fecha:         fecha,
		CategoriaID:   f.cat,
		ImportanciaID: f.imp,
		TipoPagoID:    f.pago,
	}
	f.store.unicos[g.ID] = g
	return g
}

func (f *fixture) regla(t *testing.T, dia int, frecuencia finanzas.Frecuencia) finanzas.ReglaRecurrente {
	t.Helper()
	return finanzas.ReglaRecurrente{
		ID:            uuid.New(),
		UserID:        f.user,
		Descripcion:   "alquiler",
		Monto:         monto(t, finanzas.MonedaARS, 50000000),
		MonedaOrigen:  finanzas.MonedaARS,
		DiaDePago:     dia,
		Frecuencia:    frecuencia,
		CategoriaID:   f.cat,
		ImportanciaID: f.imp,
		TipoPagoID:    f.pago,
		Activo:        true,
	}
}

func TestGenerarPendientes_UnicoExactlyOnce(t *testing.T) {
	hoy := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, hoy, tasa(125000))
	gu := f.unico(t, 150000, finanzas.MonedaARS, hoy.AddDate(0, 0, -2))

	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar: %v", err)
	}
	if len(res.Success) != 1 || len(res.Errors) != 0 {
		t.Fatalf("success=%d errors=%d", len(res.Success), len(res.Errors))
	}
	if len(f.store.gastos) != 1 {
		t.Fatalf("gastos = %d, want 1", len(f.store.gastos))
	}
	g := f.store.gastos[0]
	if minorDe(t, g.MontoARS) != 150000 {
		t.Fatalf("monto ars = %d", minorDe(t, g.MontoARS))
	}
	if g.MontoUSD == nil {
		t.Fatal("usd should be set when a rate exists")
	}
	if g.Origen.Kind != finanzas.OrigenUnico || g.Origen.ID != gu.ID {
		t.Fatalf("origen = %+v", g.Origen)
	}
	if !f.store.unicos[gu.ID].Procesado {
		t.Fatal("source should be marked processed in the same transaction")
	}

	// second run: the processed source is no longer a candidate
	res, err = f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(res.Success) != 0 || len(f.store.gastos) != 1 {
		t.Fatalf("duplicate generation: success=%d gastos=%d", len(res.Success), len(f.store.gastos))
	}
}

func TestGenerarPendientes_ErroresNoAbortanElLote(t *testing.T) {
	hoy := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, hoy, tasa(125000))
	f.unico(t, 10000, finanzas.MonedaARS, hoy)
	f.unico(t, 20000, finanzas.MonedaARS, hoy)

	// broken reference: category does not exist
	roto := f.unico(t, 30000, finanzas.MonedaARS, hoy)
	roto.CategoriaID = uuid.New()
	f.store.unicos[roto.ID] = roto

	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar: %v", err)
	}
	if len(res.Success) != 2 {
		t.Fatalf("success = %d, want 2", len(res.Success))
	}
	if len(res.Errors) != 1 || res.Errors[0].FuenteID != roto.ID {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if f.store.unicos[roto.ID].Procesado {
		t.Fatal("failed source must stay unprocessed")
	}
	d := res.Resumen.PorTipo[finanzas.OrigenUnico]
	if d.Procesadas != 3 || d.Generadas != 2 || d.Errores != 1 {
		t.Fatalf("desglose = %+v", d)
	}
}

func TestRecurrente_GateDeDiaYDuplicado(t *testing.T) {
	hoy := time.Date(2025, time.March, 15, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, hoy, nil)

	debida := f.regla(t, 15, finanzas.FrecuenciaMensual)
	f.store.recurrentes[debida.ID] = finanzas.GastoRecurrente{ReglaRecurrente: debida}
	otra := f.regla(t, 10, finanzas.FrecuenciaMensual)
	f.store.recurrentes[otra.ID] = finanzas.GastoRecurrente{ReglaRecurrente: otra}

	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar: %v", err)
	}
	d := res.Resumen.PorTipo[finanzas.OrigenRecurrente]
	if d.Generadas != 1 || d.Salteadas != 1 {
		t.Fatalf("desglose = %+v", d)
	}
	got := f.store.recurrentes[debida.ID]
	if got.UltimaFechaGenerado == nil || !finanzas.MismoDia(*got.UltimaFechaGenerado, hoy) {
		t.Fatalf("ultima fecha = %v", got.UltimaFechaGenerado)
	}
	// no USD leg without a rate
	if f.store.gastos[0].MontoUSD != nil {
		t.Fatal("usd should be nil without a rate")
	}

	// same-day rerun must not duplicate
	res, err = f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Resumen.PorTipo[finanzas.OrigenRecurrente].Generadas != 0 || len(f.store.gastos) != 1 {
		t.Fatalf("duplicate on same day: gastos=%d", len(f.store.gastos))
	}
}

func TestRecurrente_VentanaInclusive(t *testing.T) {
	hoy := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, hoy, nil)

	finHoy := f.regla(t, 15, finanzas.FrecuenciaMensual)
	fin := hoy
	finHoy.FechaFin = &fin
	f.store.recurrentes[finHoy.ID] = finanzas.GastoRecurrente{ReglaRecurrente: finHoy}

	vencida := f.regla(t, 15, finanzas.FrecuenciaMensual)
	ayer := hoy.AddDate(0, 0, -1)
	vencida.FechaFin = &ayer
	f.store.recurrentes[vencida.ID] = finanzas.GastoRecurrente{ReglaRecurrente: vencida}

	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar: %v", err)
	}
	d := res.Resumen.PorTipo[finanzas.OrigenRecurrente]
	if d.Generadas != 1 || d.Salteadas != 1 {
		t.Fatalf("fecha_fin boundary: %+v", d)
	}
	if f.store.gastos[0].Origen.ID != finHoy.ID {
		t.Fatal("the rule ending today should still generate")
	}
}

// TestRecurrente_IntervaloAproximado documents a deliberate approximation in
// the frequency gate: intervals are flat day counts (semanal=7, mensual=30,
// anual=365), not calendar lengths. A mensual rule generated on Feb 15 of a
// non-leap year is skipped on Mar 15 (28 elapsed days < 30) and fires again on
// the following due day. The day-of-month gate additionally caps a semanal
// rule at one occurrence per month.
func TestRecurrente_IntervaloAproximado(t *testing.T) {
	t.Run("mensual con febrero corto se saltea", func(t *testing.T) {
		hoy := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
		f := newFixture(t, hoy, nil)
		r := f.regla(t, 15, finanzas.FrecuenciaMensual)
		ultima := time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)
		r.UltimaFechaGenerado = &ultima
		f.store.recurrentes[r.ID] = finanzas.GastoRecurrente{ReglaRecurrente: r}

		res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
		if err != nil {
			t.Fatalf("generar: %v", err)
		}
		d := res.Resumen.PorTipo[finanzas.OrigenRecurrente]
		if d.Generadas != 0 || d.Salteadas != 1 {
			t.Fatalf("feb 15 -> mar 15: %+v", d)
		}

		// the next due day clears the 30-day floor (59 elapsed days)
		f.svc.now = func() time.Time { return time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC) }
		res, err = f.svc.GenerarPendientes(context.Background(), uuid.Nil)
		if err != nil {
			t.Fatalf("generar en abril: %v", err)
		}
		if res.Resumen.PorTipo[finanzas.OrigenRecurrente].Generadas != 1 {
			t.Fatal("rule should fire on the first due day past the interval floor")
		}
	})

	t.Run("semanal acotada por el día de pago", func(t *testing.T) {
		hoy := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
		f := newFixture(t, hoy, nil)
		r := f.regla(t, 15, finanzas.FrecuenciaSemanal)
		f.store.recurrentes[r.ID] = finanzas.GastoRecurrente{ReglaRecurrente: r}

		res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
		if err != nil {
			t.Fatalf("generar: %v", err)
		}
		if res.Resumen.PorTipo[finanzas.OrigenRecurrente].Generadas != 1 {
			t.Fatal("semanal rule should fire on its configured day")
		}

		// one week later the 7-day floor is satisfied, but the day gate
		// still blocks: semanal effectively fires once per month.
		f.svc.now = func() time.Time { return time.Date(2025, time.March, 22, 0, 0, 0, 0, time.UTC) }
		res, err = f.svc.GenerarPendientes(context.Background(), uuid.Nil)
		if err != nil {
			t.Fatalf("segunda corrida: %v", err)
		}
		d := res.Resumen.PorTipo[finanzas.OrigenRecurrente]
		if d.Generadas != 0 || d.Salteadas != 1 || len(f.store.gastos) != 1 {
			t.Fatalf("mar 22: %+v gastos=%d", d, len(f.store.gastos))
		}
	})
}

func TestDebito_FechaFinYClampDeDia(t *testing.T) {
	// Feb 28 in a non-leap year; the debit is configured for day 31.
	hoy := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, hoy, nil)

	activa := f.regla(t, 31, finanzas.FrecuenciaMensual)
	fin := hoy.AddDate(0, 1, 0)
	activa.FechaFin = &fin
	f.store.debitos[activa.ID] = finanzas.DebitoAutomatico{ReglaRecurrente: activa}

	// FechaFin in the past is permanent even while the flag stays active.
	terminada := f.regla(t, 28, finanzas.FrecuenciaMensual)
	ayer := hoy.AddDate(0, 0, -1)
	terminada.FechaFin = &ayer
	f.store.debitos[terminada.ID] = finanzas.DebitoAutomatico{ReglaRecurrente: terminada}

	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar: %v", err)
	}
	d := res.Resumen.PorTipo[finanzas.OrigenDebitoAutomatico]
	if d.Generadas != 1 || d.Salteadas != 1 {
		t.Fatalf("desglose = %+v", d)
	}
	if f.store.gastos[0].Origen.ID != activa.ID {
		t.Fatal("wrong debit generated")
	}

	// same-month rerun is a no-op even on a later day
	f.svc.now = func() time.Time { return hoy.AddDate(0, 0, 1) } // Mar 1, day 31 clamps to 31 != 1
	res, err = f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Resumen.PorTipo[finanzas.OrigenDebitoAutomatico].Generadas != 0 {
		t.Fatal("debit generated twice")
	}
}

func TestCompra_ProgresionDeCuotas(t *testing.T) {
	inicio := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, inicio, nil)

	c := finanzas.Compra{
		ID:              uuid.New(),
		UserID:          f.user,
		Descripcion:     "notebook",
		MontoTotal:      monto(t, finanzas.MonedaARS, 10000), // 100.00 in 3 installments
		MonedaOrigen:    finanzas.MonedaARS,
		CantidadCuotas:  3,
		Fecha:           inicio,
		CategoriaID:     f.cat,
		ImportanciaID:   f.imp,
		TipoPagoID:      f.pago,
		PendienteCuotas: true,
	}
	f.store.compras[c.ID] = c

	fechas := []time.Time{
		inicio,
		time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
	}
	for i, hoy := range fechas {
		f.svc.now = func() time.Time { return hoy }
		res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if got := res.Resumen.PorTipo[finanzas.OrigenCompra].Generadas; got != 1 {
			t.Fatalf("run %d: generadas = %d, want 1", i+1, got)
		}
	}

	if len(f.store.gastos) != 3 {
		t.Fatalf("gastos = %d, want 3", len(f.store.gastos))
	}
	for i, g := range f.store.gastos {
		if minorDe(t, g.MontoARS) != 3333 { // round(10000/3)
			t.Fatalf("cuota %d monto = %d", i+1, minorDe(t, g.MontoARS))
		}
		if g.CuotasTotales != 3 || g.CuotasPagadas != i+1 {
			t.Fatalf("cuota %d bookkeeping: %d/%d", i+1, g.CuotasPagadas, g.CuotasTotales)
		}
	}
	if f.store.gastos[2].Descripcion != "notebook - Cuota 3/3" {
		t.Fatalf("descripcion = %q", f.store.gastos[2].Descripcion)
	}
	if f.store.compras[c.ID].PendienteCuotas {
		t.Fatal("pendiente flag should drop after the last installment")
	}

	// a later run finds no pending purchase
	f.svc.now = func() time.Time { return time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC) }
	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("final run: %v", err)
	}
	if res.Resumen.PorTipo[finanzas.OrigenCompra].Procesadas != 0 {
		t.Fatal("settled purchase still scanned")
	}
}

func TestCompra_TarjetaCreditoPrimerVencimiento(t *testing.T) {
	// Purchased Jan 25, after the Jan 20 close: due on the Feb 10 vencimiento.
	compraFecha := time.Date(2025, time.January, 25, 0, 0, 0, 0, time.UTC)
	vencimiento := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)

	f := newFixture(t, compraFecha, nil)
	tarjetaID := uuid.New()
	c := finanzas.Compra{
		ID:             uuid.New(),
		UserID:         f.user,
		Descripcion:    "heladera",
		MontoTotal:     monto(t, finanzas.MonedaARS, 500000),
		MonedaOrigen:   finanzas.MonedaARS,
		CantidadCuotas: 1,
		Fecha:          compraFecha,
		CategoriaID:    f.cat,
		ImportanciaID:  f.imp,
		TipoPagoID:     f.pago,
		TarjetaID:      &tarjetaID,
		Tarjeta: &finanzas.Tarjeta{
			ID:                tarjetaID,
			UserID:            f.user,
			Nombre:            "Visa",
			Tipo:              finanzas.TarjetaCredito,
			DiaMesCierre:      20,
			DiaMesVencimiento: 10,
		},
		PendienteCuotas: true,
	}
	f.store.compras[c.ID] = c

	// purchase day: nothing due yet
	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar: %v", err)
	}
	if res.Resumen.PorTipo[finanzas.OrigenCompra].Generadas != 0 {
		t.Fatal("installment generated before the due date")
	}

	f.svc.now = func() time.Time { return vencimiento }
	res, err = f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar en vencimiento: %v", err)
	}
	if res.Resumen.PorTipo[finanzas.OrigenCompra].Generadas != 1 {
		t.Fatal("installment not generated on the due date")
	}
	if minorDe(t, f.store.gastos[0].MontoARS) != 500000 {
		t.Fatal("single installment should carry the full total")
	}
	if f.store.compras[c.ID].PendienteCuotas {
		t.Fatal("single-installment purchase should settle in one run")
	}
}

func TestCompra_CicloDeTarjetaInvalidoReportaError(t *testing.T) {
	hoy := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, hoy, nil)
	tarjetaID := uuid.New()
	c := finanzas.Compra{
		ID:             uuid.New(),
		UserID:         f.user,
		Descripcion:    "televisor",
		MontoTotal:     monto(t, finanzas.MonedaARS, 300000),
		MonedaOrigen:   finanzas.MonedaARS,
		CantidadCuotas: 3,
		Fecha:          time.Date(2025, time.January, 25, 0, 0, 0, 0, time.UTC),
		CategoriaID:    f.cat,
		ImportanciaID:  f.imp,
		TipoPagoID:     f.pago,
		TarjetaID:      &tarjetaID,
		Tarjeta: &finanzas.Tarjeta{
			ID:     tarjetaID,
			UserID: f.user,
			Nombre: "Visa",
			Tipo:   finanzas.TarjetaCredito,
			// no closing/due days configured
		},
		PendienteCuotas: true,
	}
	f.store.compras[c.ID] = c

	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar: %v", err)
	}
	// the broken billing cycle must surface as a per-item error, not a skip
	if len(res.Errors) != 1 || res.Errors[0].FuenteID != c.ID {
		t.Fatalf("errors = %+v", res.Errors)
	}
	d := res.Resumen.PorTipo[finanzas.OrigenCompra]
	if d.Errores != 1 || d.Salteadas != 0 {
		t.Fatalf("desglose = %+v", d)
	}
	if !f.store.compras[c.ID].PendienteCuotas {
		t.Fatal("broken purchase must stay pending")
	}
}

func TestUnicoUSD_SinTipoCambioFalla(t *testing.T) {
	hoy := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, hoy, nil)
	gu := f.unico(t, 10000, finanzas.MonedaUSD, hoy)

	res, err := f.svc.GenerarPendientes(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("generar: %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0].FuenteID != gu.ID {
		t.Fatalf("expected one error for the USD source, got %+v", res.Errors)
	}
	if f.store.unicos[gu.ID].Procesado {
		t.Fatal("failed USD source must stay unprocessed for a later retry")
	}
}
