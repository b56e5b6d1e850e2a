package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
)

var errTxCerrada = errors.New("transaction already closed")

type ultimaGeneracion struct {
	kind  finanzas.OriginKind
	id    uuid.UUID
	fecha time.Time
}

type estadoCompra struct {
	id        uuid.UUID
	ultima    time.Time
	pendiente bool
}

// Tx buffers writes against the store and applies them atomically on Commit.
// Reads see the committed state plus this transaction's own staged writes.
type Tx struct {
	s          *Store
	gastos     []finanzas.Gasto
	procesados []uuid.UUID
	ultimas    []ultimaGeneracion
	compras    []estadoCompra
	cerrada    bool
}

func (t *Tx) CreateGasto(_ context.Context, g finanzas.Gasto) (finanzas.Gasto, error) {
	if t.cerrada {
		return finanzas.Gasto{}, errTxCerrada
	}
	t.gastos = append(t.gastos, g)
	return g, nil
}

func (t *Tx) MarcarGastoUnicoProcesado(_ context.Context, id uuid.UUID) error {
	if t.cerrada {
		return errTxCerrada
	}
	t.procesados = append(t.procesados, id)
	return nil
}

func (t *Tx) ActualizarUltimaGeneracion(_ context.Context, kind finanzas.OriginKind, id uuid.UUID, fecha time.Time) error {
	if t.cerrada {
		return errTxCerrada
	}
	if kind != finanzas.OrigenRecurrente && kind != finanzas.OrigenDebitoAutomatico {
		return errs.ErrInvalid
	}
	t.ultimas = append(t.ultimas, ultimaGeneracion{kind: kind, id: id, fecha: finanzas.SoloFecha(fecha)})
	return nil
}

func (t *Tx) ActualizarEstadoCompra(_ context.Context, id uuid.UUID, ultimaCuota time.Time, pendiente bool) error {
	if t.cerrada {
		return errTxCerrada
	}
	t.compras = append(t.compras, estadoCompra{id: id, ultima: finanzas.SoloFecha(ultimaCuota), pendiente: pendiente})
	return nil
}

// CountGastosPorOrigen counts committed rows plus this transaction's staged inserts.
func (t *Tx) CountGastosPorOrigen(_ context.Context, origen finanzas.OriginRef) (int, error) {
	if t.cerrada {
		return 0, errTxCerrada
	}
	t.s.mu.RLock()
	n := t.s.countOrigenLocked(origen)
	t.s.mu.RUnlock()
	for _, g := range t.gastos {
		if g.Origen == origen {
			n++
		}
	}
	return n, nil
}

func (t *Tx) Commit(_ context.Context) error {
	if t.cerrada {
		return errTxCerrada
	}
	t.cerrada = true
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range t.gastos {
		s.gastos[g.ID] = g
	}
	for _, id := range t.procesados {
		gu, ok := s.unicos[id]
		if !ok {
			return errs.ErrNotFound
		}
		gu.Procesado = true
		s.unicos[id] = gu
	}
	for _, u := range t.ultimas {
		switch u.kind {
		case finanzas.OrigenRecurrente:
			gr, ok := s.recurrentes[u.id]
			if !ok {
				return errs.ErrNotFound
			}
			fecha := u.fecha
			gr.UltimaFechaGenerado = &fecha
			s.recurrentes[u.id] = gr
		case finanzas.OrigenDebitoAutomatico:
			d, ok := s.debitos[u.id]
			if !ok {
				return errs.ErrNotFound
			}
			fecha := u.fecha
			d.UltimaFechaGenerado = &fecha
			s.debitos[u.id] = d
		}
	}
	for _, ec := range t.compras {
		c, ok := s.compras[ec.id]
		if !ok {
			return errs.ErrNotFound
		}
		ultima := ec.ultima
		c.FechaUltimaCuotaGenerada = &ultima
		c.PendienteCuotas = ec.pendiente
		s.compras[ec.id] = c
	}
	return nil
}

func (t *Tx) Rollback(_ context.Context) error {
	if t.cerrada {
		return nil
	}
	t.cerrada = true
	t.gastos = nil
	t.procesados = nil
	t.ultimas = nil
	t.compras = nil
	return nil
}
