package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mlorenzo/finanzas/internal/service/cambio"
	"github.com/mlorenzo/finanzas/internal/service/generador"
	"github.com/mlorenzo/finanzas/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type fixture struct {
	h      http.Handler
	userID uuid.UUID
	cat    uuid.UUID
	imp    uuid.UUID
	pago   uuid.UUID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	userID, cat, imp, pago := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	store.SeedCategoria(cat)
	store.SeedImportancia(imp)
	store.SeedTipoPago(pago)

	rates, err := cambio.New(store, store, testLogger(), "http://127.0.0.1:0")
	if err != nil {
		t.Fatalf("rate service: %v", err)
	}
	gen := generador.New(store, store, rates, testLogger())
	h := New(store, gen, rates, nil, testLogger()).Handler()
	return &fixture{h: h, userID: userID, cat: cat, imp: imp, pago: pago}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode: %v: %s", err, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := setup(t)
	if rec := f.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
}

func TestTipoCambio_ManualYActual(t *testing.T) {
	f := setup(t)

	// no rate configured yet
	if rec := f.do(t, http.MethodGet, "/v1/tipo-cambio/actual", nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without rate, got %d: %s", rec.Code, rec.Body.String())
	}

	// venta below compra is rejected
	rec := f.do(t, http.MethodPut, "/v1/tipo-cambio", map[string]any{
		"valor_compra": "1300", "valor_venta": "1250",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var er errResp
	decode(t, rec, &er)
	if er.Code != "invalid_rate" {
		t.Fatalf("code = %s", er.Code)
	}

	rec = f.do(t, http.MethodPut, "/v1/tipo-cambio", map[string]any{
		"valor_compra": "1200.50", "valor_venta": "1250.75",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put rate = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/v1/tipo-cambio/actual", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("actual = %d", rec.Code)
	}
	var tc tipoCambioResponse
	decode(t, rec, &tc)
	if tc.ValorVenta != "1250.75" || tc.Fuente != "manual" {
		t.Fatalf("unexpected rate: %+v", tc)
	}

	rec = f.do(t, http.MethodGet, "/v1/tipo-cambio?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("historial = %d", rec.Code)
	}

	// conversion at the current rate: 100.00 USD * compra 1200.50
	rec = f.do(t, http.MethodPost, "/v1/conversiones", map[string]any{
		"monto_minor": 10000, "moneda": "USD",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("conversion = %d: %s", rec.Code, rec.Body.String())
	}
	var conv conversionResponse
	decode(t, rec, &conv)
	if conv.MontoARSMinor != 12005000 {
		t.Fatalf("ars minor = %d, want 12005000", conv.MontoARSMinor)
	}
}

func TestGastosUnicos_CrearGenerarListar(t *testing.T) {
	f := setup(t)

	// seed a rate so the USD leg gets populated
	if rec := f.do(t, http.MethodPut, "/v1/tipo-cambio", map[string]any{
		"valor_compra": "1200.00", "valor_venta": "1250.50",
	}); rec.Code != http.StatusOK {
		t.Fatalf("put rate = %d", rec.Code)
	}

	// validation: missing descripcion
	rec := f.do(t, http.MethodPost, "/v1/gastos-unicos", map[string]any{
		"user_id":        f.userID.String(),
		"monto_minor":    12500000,
		"moneda":         "ARS",
		"fecha":          time.Now().UTC().Format(time.RFC3339),
		"categoria_id":   f.cat.String(),
		"importancia_id": f.imp.String(),
		"tipo_pago_id":   f.pago.String(),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/v1/gastos-unicos", map[string]any{
		"user_id":        f.userID.String(),
		"descripcion":    "cena",
		"monto_minor":    12500000,
		"moneda":         "ARS",
		"fecha":          time.Now().UTC().Format(time.RFC3339),
		"categoria_id":   f.cat.String(),
		"importancia_id": f.imp.String(),
		"tipo_pago_id":   f.pago.String(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created gastoUnicoResponse
	decode(t, rec, &created)
	if created.Procesado || created.MontoMinor != 12500000 {
		t.Fatalf("unexpected source: %+v", created)
	}

	// pending listing shows it
	rec = f.do(t, http.MethodGet, "/v1/gastos-unicos?user_id="+f.userID.String(), nil)
	var pendientes struct {
		Items []gastoUnicoResponse `json:"items"`
	}
	decode(t, rec, &pendientes)
	if len(pendientes.Items) != 1 {
		t.Fatalf("pendientes = %d", len(pendientes.Items))
	}

	// trigger generation
	rec = f.do(t, http.MethodPost, "/v1/gastos/generar", map[string]any{"user_id": f.userID.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("generar = %d: %s", rec.Code, rec.Body.String())
	}
	var run generarResponse
	decode(t, rec, &run)
	if len(run.Generados) != 1 || len(run.Errores) != 0 {
		t.Fatalf("run: %+v", run)
	}
	if run.Generados[0].MontoARSMinor != 12500000 {
		t.Fatalf("monto = %d", run.Generados[0].MontoARSMinor)
	}

	// materialized gasto carries the USD leg: 125000.00 / 1250.50 = 99.96
	rec = f.do(t, http.MethodGet, "/v1/gastos?user_id="+f.userID.String(), nil)
	var gastos struct {
		Items []gastoResponse `json:"items"`
	}
	decode(t, rec, &gastos)
	if len(gastos.Items) != 1 {
		t.Fatalf("gastos = %d", len(gastos.Items))
	}
	g := gastos.Items[0]
	if g.MontoUSDMinor == nil || *g.MontoUSDMinor != 9996 {
		t.Fatalf("usd leg: %+v", g)
	}
	if g.TipoCambioUsado != "1250.50" {
		t.Fatalf("rate snapshot = %q", g.TipoCambioUsado)
	}

	// rerun: nothing pending
	rec = f.do(t, http.MethodPost, "/v1/gastos/generar", nil)
	decode(t, rec, &run)
	if len(run.Generados) != 0 {
		t.Fatal("duplicate generation through the API")
	}
}

func TestFuentes_Validaciones(t *testing.T) {
	f := setup(t)

	// recurring rule with an unknown cadence
	rec := f.do(t, http.MethodPost, "/v1/gastos-recurrentes", map[string]any{
		"user_id":        f.userID.String(),
		"descripcion":    "gym",
		"monto_minor":    20000,
		"moneda":         "ARS",
		"dia_de_pago":    5,
		"frecuencia":     "diaria",
		"categoria_id":   f.cat.String(),
		"importancia_id": f.imp.String(),
		"tipo_pago_id":   f.pago.String(),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad frecuencia, got %d", rec.Code)
	}

	// automatic debit without fecha_fin
	rec = f.do(t, http.MethodPost, "/v1/debitos-automaticos", map[string]any{
		"user_id":        f.userID.String(),
		"descripcion":    "netflix",
		"monto_minor":    1500000,
		"moneda":         "ARS",
		"dia_de_pago":    7,
		"frecuencia":     "mensual",
		"categoria_id":   f.cat.String(),
		"importancia_id": f.imp.String(),
		"tipo_pago_id":   f.pago.String(),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing fecha_fin, got %d", rec.Code)
	}

	// valid debit
	rec = f.do(t, http.MethodPost, "/v1/debitos-automaticos", map[string]any{
		"user_id":        f.userID.String(),
		"descripcion":    "netflix",
		"monto_minor":    1500000,
		"moneda":         "ARS",
		"dia_de_pago":    7,
		"frecuencia":     "mensual",
		"categoria_id":   f.cat.String(),
		"importancia_id": f.imp.String(),
		"tipo_pago_id":   f.pago.String(),
		"fecha_fin":      time.Now().AddDate(1, 0, 0).UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create debito = %d: %s", rec.Code, rec.Body.String())
	}

	// purchase with zero installments
	rec = f.do(t, http.MethodPost, "/v1/compras", map[string]any{
		"user_id":           f.userID.String(),
		"descripcion":       "tv",
		"monto_total_minor": 300000,
		"moneda":            "ARS",
		"cantidad_cuotas":   0,
		"fecha":             time.Now().UTC().Format(time.RFC3339),
		"categoria_id":      f.cat.String(),
		"importancia_id":    f.imp.String(),
		"tipo_pago_id":      f.pago.String(),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for cantidad_cuotas=0, got %d", rec.Code)
	}

	// card with tipo neither credito nor debito
	rec = f.do(t, http.MethodPost, "/v1/tarjetas", map[string]any{
		"user_id": f.userID.String(),
		"nombre":  "Visa",
		"tipo":    "prepaga",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad card tipo, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/v1/tarjetas", map[string]any{
		"user_id":             f.userID.String(),
		"nombre":              "Visa",
		"tipo":                "credito",
		"dia_mes_cierre":      20,
		"dia_mes_vencimiento": 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tarjeta = %d: %s", rec.Code, rec.Body.String())
	}
}
