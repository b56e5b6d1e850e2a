package cambio

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
)

// Repo defines the read operations needed by the service.
type Repo interface {
	LatestTipoCambio(ctx context.Context) (finanzas.TipoCambio, error)
	TipoCambioPorFecha(ctx context.Context, fecha time.Time) (finanzas.TipoCambio, error)
	// TipoCambioAnterior returns the closest active rate dated on or before fecha.
	TipoCambioAnterior(ctx context.Context, fecha time.Time) (finanzas.TipoCambio, error)
	TiposCambio(ctx context.Context, desde, hasta *time.Time, limit int) ([]finanzas.TipoCambio, error)
}

// Writer defines the write operations needed by the service.
type Writer interface {
	UpsertTipoCambio(ctx context.Context, tc finanzas.TipoCambio) (finanzas.TipoCambio, error)
}

// Service exposes rate lookups, conversions and rate maintenance.
type Service interface {
	CurrentRate(ctx context.Context) (finanzas.TipoCambio, error)
	RateForDate(ctx context.Context, fecha time.Time) (finanzas.TipoCambio, error)
	AmbosMontos(ctx context.Context, monto money.Amount, moneda finanzas.Moneda, tc *finanzas.TipoCambio) (Montos, error)
	SetManualRate(ctx context.Context, fecha time.Time, compra, venta decimal.Decimal) (finanzas.TipoCambio, error)
	ActualizarDesdeAPI(ctx context.Context) (finanzas.TipoCambio, error)
	Historial(ctx context.Context, desde, hasta *time.Time, limit int) ([]finanzas.TipoCambio, error)
}

const (
	cacheKeyActual = "tc:actual"
	cacheTTL       = time.Hour
)

type service struct {
	repo    Repo
	writer  Writer
	cache   *ristretto.Cache
	fetcher *rateFetcher
	log     *slog.Logger
	now     func() time.Time
}

// New constructs the rate service. apiURL points at the external provider
// used by ActualizarDesdeAPI; empty selects the default.
func New(repo Repo, writer Writer, logger *slog.Logger, apiURL string) (Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 64,
		MaxCost:     16,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &service{
		repo:    repo,
		writer:  writer,
		cache:   cache,
		fetcher: newRateFetcher(apiURL),
		log:     logger,
		now:     time.Now,
	}, nil
}

// CurrentRate returns the most recent active rate, cached for one hour.
func (s *service) CurrentRate(ctx context.Context) (finanzas.TipoCambio, error) {
	if v, ok := s.cache.Get(cacheKeyActual); ok {
		if tc, ok := v.(finanzas.TipoCambio); ok {
			return tc, nil
		}
	}
	tc, err := s.repo.LatestTipoCambio(ctx)
	if errors.Is(err, errs.ErrNotFound) {
		return finanzas.TipoCambio{}, errs.ErrNoRateConfigured
	}
	if err != nil {
		return finanzas.TipoCambio{}, err
	}
	s.cache.SetWithTTL(cacheKeyActual, tc, 1, cacheTTL)
	s.cache.Wait()
	return tc, nil
}

// RateForDate returns the rate for an exact date, falling back to the closest
// earlier active rate, and finally to the current rate when no history exists.
func (s *service) RateForDate(ctx context.Context, fecha time.Time) (finanzas.TipoCambio, error) {
	fecha = finanzas.SoloFecha(fecha)
	tc, err := s.repo.TipoCambioPorFecha(ctx, fecha)
	if err == nil {
		return tc, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return finanzas.TipoCambio{}, err
	}
	tc, err = s.repo.TipoCambioAnterior(ctx, fecha)
	if err == nil {
		return tc, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return finanzas.TipoCambio{}, err
	}
	s.log.Warn("no historical rate for date, using current", "fecha", fecha.Format("2006-01-02"))
	return s.CurrentRate(ctx)
}

// AmbosMontos resolves the current rate when tc is nil and delegates to the
// pure conversion entry point.
func (s *service) AmbosMontos(ctx context.Context, monto money.Amount, moneda finanzas.Moneda, tc *finanzas.TipoCambio) (Montos, error) {
	if !moneda.Valida() {
		return Montos{}, errs.ErrInvalidCurrency
	}
	if tc == nil {
		cur, err := s.CurrentRate(ctx)
		if err != nil {
			return Montos{}, err
		}
		tc = &cur
	}
	return CalcularAmbosMontos(monto, moneda, tc)
}

// SetManualRate upserts a rate row after validating venta >= compra > 0 and
// invalidates the in-memory cache.
func (s *service) SetManualRate(ctx context.Context, fecha time.Time, compra, venta decimal.Decimal) (finanzas.TipoCambio, error) {
	tc, err := s.upsert(ctx, fecha, compra, venta, "manual")
	if err != nil {
		return finanzas.TipoCambio{}, err
	}
	s.log.Info("tipo de cambio actualizado manualmente",
		"fecha", tc.Fecha.Format("2006-01-02"),
		"compra", tc.ValorCompra.String(),
		"venta", tc.ValorVenta.String(),
	)
	return tc, nil
}

func (s *service) upsert(ctx context.Context, fecha time.Time, compra, venta decimal.Decimal, fuente string) (finanzas.TipoCambio, error) {
	if !compra.IsPos() || !venta.IsPos() || venta.Cmp(compra) < 0 {
		return finanzas.TipoCambio{}, errs.ErrInvalidRate
	}
	tc := finanzas.TipoCambio{
		Fecha:       finanzas.SoloFecha(fecha),
		ValorCompra: compra.Round(2),
		ValorVenta:  venta.Round(2),
		Fuente:      fuente,
		Activo:      true,
	}
	out, err := s.writer.UpsertTipoCambio(ctx, tc)
	if err != nil {
		return finanzas.TipoCambio{}, err
	}
	s.cache.Del(cacheKeyActual)
	return out, nil
}

// ActualizarDesdeAPI refreshes today's rate from the external provider. A
// provider failure degrades to the last persisted rate instead of propagating:
// generation must keep working with yesterday's rate.
func (s *service) ActualizarDesdeAPI(ctx context.Context) (finanzas.TipoCambio, error) {
	hoy := finanzas.SoloFecha(s.now())

	// A manual rate for today wins over the provider; an api one is fresh enough.
	if existing, err := s.repo.TipoCambioPorFecha(ctx, hoy); err == nil {
		s.log.Info("tipo de cambio ya registrado hoy", "fuente", existing.Fuente)
		return existing, nil
	}

	compra, venta, err := s.fetcher.fetch(ctx)
	if err != nil {
		s.log.Warn("rate provider unavailable, keeping last persisted rate", "err", err)
		return s.CurrentRate(ctx)
	}
	tc, err := s.upsert(ctx, hoy, compra, venta, "api")
	if err != nil {
		return finanzas.TipoCambio{}, err
	}
	s.log.Info("tipo de cambio actualizado desde API",
		"fecha", tc.Fecha.Format("2006-01-02"),
		"compra", tc.ValorCompra.String(),
		"venta", tc.ValorVenta.String(),
	)
	return tc, nil
}

// Historial lists persisted rates, newest first.
func (s *service) Historial(ctx context.Context, desde, hasta *time.Time, limit int) ([]finanzas.TipoCambio, error) {
	if limit <= 0 {
		limit = 30
	}
	return s.repo.TiposCambio(ctx, desde, hasta, limit)
}
