package generador

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mlorenzo/finanzas/internal/finanzas"
)

// ItemGenerado records one successfully materialized gasto.
type ItemGenerado struct {
	Tipo        finanzas.OriginKind
	GastoID     uuid.UUID
	FuenteID    uuid.UUID
	Descripcion string
	MontoARS    money.Amount
}

// ItemError records one candidate whose transaction was rolled back.
type ItemError struct {
	Tipo        finanzas.OriginKind
	FuenteID    uuid.UUID
	Descripcion string
	Error       string
}

// Desglose breaks a run down per source kind.
type Desglose struct {
	Procesadas int
	Generadas  int
	Salteadas  int
	Errores    int
}

// Resumen aggregates run-level accounting.
type Resumen struct {
	TotalProcesadas int
	Duracion        time.Duration
	PorTipo         map[finanzas.OriginKind]*Desglose
}

// Resultado is the aggregated outcome of one orchestrator run. Per-item
// failures live in Errors; they never abort the batch.
type Resultado struct {
	Success []ItemGenerado
	Errors  []ItemError
	Resumen Resumen
}

// Service is the single entry point the scheduler or HTTP trigger invokes.
type Service interface {
	// GenerarPendientes scans every source kind for candidates and drives
	// generation, one transaction per candidate. A uuid.Nil userID processes
	// all users. Only a failed candidate scan returns an error; everything
	// else degrades to entries in Resultado.Errors.
	GenerarPendientes(ctx context.Context, userID uuid.UUID) (Resultado, error)
}

type service struct {
	repo  Repo
	txm   TxManager
	rates Cambiador
	log   *slog.Logger
	now   func() time.Time
}

// New constructs the generation orchestrator.
func New(repo Repo, txm TxManager, rates Cambiador, logger *slog.Logger) Service {
	return &service{repo: repo, txm: txm, rates: rates, log: logger, now: time.Now}
}

func nuevoResultado() *Resultado {
	return &Resultado{
		Success: []ItemGenerado{},
		Errors:  []ItemError{},
		Resumen: Resumen{PorTipo: map[finanzas.OriginKind]*Desglose{
			finanzas.OrigenUnico:            {},
			finanzas.OrigenRecurrente:       {},
			finanzas.OrigenDebitoAutomatico: {},
			finanzas.OrigenCompra:           {},
		}},
	}
}

func (s *service) GenerarPendientes(ctx context.Context, userID uuid.UUID) (Resultado, error) {
	inicio := s.now()
	hoy := finanzas.SoloFecha(inicio)
	res := nuevoResultado()

	s.log.Info("iniciando generación de gastos pendientes", "user_id", userID, "fecha", hoy.Format("2006-01-02"))

	// Resolve the reference rate up front so a slow or missing provider can
	// never hold a generation transaction open. A missing rate degrades to
	// ARS-only gastos.
	var tc *finanzas.TipoCambio
	if cur, err := s.rates.CurrentRate(ctx); err == nil {
		tc = &cur
	} else {
		s.log.Warn("corrida sin tipo de cambio", "err", err)
	}

	unicos, err := s.repo.GastosUnicosPendientes(ctx, userID)
	if err != nil {
		return Resultado{}, fmt.Errorf("scan gastos únicos: %w", err)
	}
	res.Resumen.PorTipo[finanzas.OrigenUnico].Procesadas = len(unicos)
	for _, gu := range unicos {
		s.procesarUnico(ctx, gu, tc, res)
	}

	recurrentes, err := s.repo.GastosRecurrentesActivos(ctx, userID)
	if err != nil {
		return Resultado{}, fmt.Errorf("scan gastos recurrentes: %w", err)
	}
	res.Resumen.PorTipo[finanzas.OrigenRecurrente].Procesadas = len(recurrentes)
	for _, gr := range recurrentes {
		s.procesarRecurrente(ctx, gr, hoy, tc, res)
	}

	debitos, err := s.repo.DebitosAutomaticosActivos(ctx, userID)
	if err != nil {
		return Resultado{}, fmt.Errorf("scan débitos automáticos: %w", err)
	}
	res.Resumen.PorTipo[finanzas.OrigenDebitoAutomatico].Procesadas = len(debitos)
	for _, d := range debitos {
		s.procesarDebito(ctx, d, hoy, tc, res)
	}

	compras, err := s.repo.ComprasPendientes(ctx, userID)
	if err != nil {
		return Resultado{}, fmt.Errorf("scan compras: %w", err)
	}
	res.Resumen.PorTipo[finanzas.OrigenCompra].Procesadas = len(compras)
	for _, c := range compras {
		s.procesarCompra(ctx, c, hoy, tc, res)
	}

	res.Resumen.TotalProcesadas = len(res.Success) + len(res.Errors)
	res.Resumen.Duracion = s.now().Sub(inicio)

	s.log.Info("generación completada",
		"generados", len(res.Success),
		"errores", len(res.Errors),
		"duracion", res.Resumen.Duracion.String(),
	)
	return *res, nil
}

// enTransaccion runs one candidate inside a fresh transaction. fn returning
// a nil gasto means "nothing due": the transaction is rolled back as a no-op
// and the candidate is counted as skipped, not as an error.
func (s *service) enTransaccion(ctx context.Context, kind finanzas.OriginKind, fuenteID uuid.UUID, desc string, res *Resultado, fn func(tx Tx) (*finanzas.Gasto, error)) {
	tx, err := s.txm.BeginTx(ctx)
	if err != nil {
		s.registrarError(res, kind, fuenteID, desc, err)
		return
	}
	g, err := fn(tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		s.registrarError(res, kind, fuenteID, desc, err)
		return
	}
	if g == nil {
		_ = tx.Rollback(ctx)
		res.Resumen.PorTipo[kind].Salteadas++
		return
	}
	if err := tx.Commit(ctx); err != nil {
		s.registrarError(res, kind, fuenteID, desc, err)
		return
	}
	res.Success = append(res.Success, ItemGenerado{
		Tipo:        kind,
		GastoID:     g.ID,
		FuenteID:    fuenteID,
		Descripcion: desc,
		MontoARS:    g.MontoARS,
	})
	res.Resumen.PorTipo[kind].Generadas++
	gastosGenerados.WithLabelValues(string(kind)).Inc()
	s.log.Debug("gasto generado", "tipo", kind, "gasto_id", g.ID, "fuente_id", fuenteID)
}

func (s *service) registrarError(res *Resultado, kind finanzas.OriginKind, fuenteID uuid.UUID, desc string, err error) {
	res.Errors = append(res.Errors, ItemError{
		Tipo:        kind,
		FuenteID:    fuenteID,
		Descripcion: desc,
		Error:       err.Error(),
	})
	res.Resumen.PorTipo[kind].Errores++
	gastosFallidos.WithLabelValues(string(kind)).Inc()
	s.log.Error("error generando gasto", "tipo", kind, "fuente_id", fuenteID, "err", err)
}

func (s *service) procesarUnico(ctx context.Context, gu finanzas.GastoUnico, tc *finanzas.TipoCambio, res *Resultado) {
	estr := estrategiaInmediata{}
	s.enTransaccion(ctx, estr.Tipo(), gu.ID, gu.Descripcion, res, func(tx Tx) (*finanzas.Gasto, error) {
		if !estr.DebeGenerar(gu) {
			return nil, nil
		}
		if err := s.repo.CheckGastoRefs(ctx, gu.UserID, gu.CategoriaID, gu.ImportanciaID, gu.TipoPagoID); err != nil {
			return nil, err
		}
		g, err := estr.Generar(ctx, tx, gu, tc)
		if err != nil {
			return nil, err
		}
		// Exactly-once: the processed flag flips in the same transaction.
		if err := tx.MarcarGastoUnicoProcesado(ctx, gu.ID); err != nil {
			return nil, err
		}
		return g, nil
	})
}

func (s *service) procesarRecurrente(ctx context.Context, gr finanzas.GastoRecurrente, hoy time.Time, tc *finanzas.TipoCambio, res *Resultado) {
	estr := estrategiaRecurrente{}
	s.enTransaccion(ctx, estr.Tipo(), gr.ID, gr.Descripcion, res, func(tx Tx) (*finanzas.Gasto, error) {
		if !estr.DebeGenerar(gr, hoy) || !frecuenciaPermite(gr.ReglaRecurrente, hoy) {
			return nil, nil
		}
		if err := s.repo.CheckGastoRefs(ctx, gr.UserID, gr.CategoriaID, gr.ImportanciaID, gr.TipoPagoID); err != nil {
			return nil, err
		}
		return estr.Generar(ctx, tx, gr, hoy, tc)
	})
}

func (s *service) procesarDebito(ctx context.Context, d finanzas.DebitoAutomatico, hoy time.Time, tc *finanzas.TipoCambio, res *Resultado) {
	estr := estrategiaDebito{}
	s.enTransaccion(ctx, estr.Tipo(), d.ID, d.Descripcion, res, func(tx Tx) (*finanzas.Gasto, error) {
		if !estr.DebeGenerar(d, hoy) {
			return nil, nil
		}
		if err := s.repo.CheckGastoRefs(ctx, d.UserID, d.CategoriaID, d.ImportanciaID, d.TipoPagoID); err != nil {
			return nil, err
		}
		return estr.Generar(ctx, tx, d, hoy, tc)
	})
}

func (s *service) procesarCompra(ctx context.Context, c finanzas.Compra, hoy time.Time, tc *finanzas.TipoCambio, res *Resultado) {
	estr := estrategiaCuotas{}
	s.enTransaccion(ctx, estr.Tipo(), c.ID, c.Descripcion, res, func(tx Tx) (*finanzas.Gasto, error) {
		// Recompute "is this already generated" against the transaction's
		// own view, not the pre-scan snapshot.
		due, err := estr.DebeGenerar(ctx, tx, c, hoy)
		if err != nil {
			return nil, err
		}
		if !due {
			return nil, nil
		}
		if err := s.repo.CheckGastoRefs(ctx, c.UserID, c.CategoriaID, c.ImportanciaID, c.TipoPagoID); err != nil {
			return nil, err
		}
		return estr.Generar(ctx, tx, c, hoy, tc)
	})
}
