// Package programador runs the daily in-process schedule: refresh the
// exchange rate, then drive a generation pass over every user.
package programador

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mlorenzo/finanzas/internal/service/cambio"
	"github.com/mlorenzo/finanzas/internal/service/generador"
)

// Programador wakes up shortly after each midnight, refreshes the reference
// rate and triggers generation. It also runs one pass on startup so a
// restarted process catches the current day.
type Programador struct {
	gen   generador.Service
	rates cambio.Service
	log   *slog.Logger
	now   func() time.Time
}

// Offset past midnight before the daily pass fires.
const margenArranque = 5 * time.Minute

func New(gen generador.Service, rates cambio.Service, logger *slog.Logger) *Programador {
	return &Programador{gen: gen, rates: rates, log: logger, now: time.Now}
}

// Run blocks until ctx is cancelled, executing one pass per calendar day.
func (p *Programador) Run(ctx context.Context) {
	p.ejecutar(ctx)

	for {
		espera := p.hastaProximaCorrida()
		p.log.Info("próxima corrida programada", "en", espera.String())

		timer := time.NewTimer(espera)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Info("programador detenido")
			return
		case <-timer.C:
			p.ejecutar(ctx)
		}
	}
}

func (p *Programador) hastaProximaCorrida() time.Duration {
	ahora := p.now()
	manana := time.Date(ahora.Year(), ahora.Month(), ahora.Day(), 0, 0, 0, 0, ahora.Location()).AddDate(0, 0, 1)
	return manana.Add(margenArranque).Sub(ahora)
}

func (p *Programador) ejecutar(ctx context.Context) {
	if _, err := p.rates.ActualizarDesdeAPI(ctx); err != nil {
		// Generation still runs: it degrades to ARS-only gastos without a rate.
		p.log.Warn("no se pudo refrescar el tipo de cambio", "err", err)
	}

	res, err := p.gen.GenerarPendientes(ctx, uuid.Nil)
	if err != nil {
		p.log.Error("corrida diaria falló", "err", err)
		return
	}
	p.log.Info("corrida diaria completada",
		"generados", len(res.Success),
		"errores", len(res.Errors),
		"duracion", res.Resumen.Duracion.String(),
	)
}
