package memory

// Package memory provides a simple in-memory implementation used for
// development and tests. It keeps code paths easy to follow while allowing
// us to plug in a real DB later.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mlorenzo/finanzas/internal/errs"
	"github.com/mlorenzo/finanzas/internal/finanzas"
	"github.com/mlorenzo/finanzas/internal/service/generador"
)

// Store is an in-memory implementation of every repository used by the
// services and the API. It is guarded by an RWMutex for concurrent use.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]struct{}
	categorias   map[uuid.UUID]struct{}
	importancias map[uuid.UUID]struct{}
	tiposPago    map[uuid.UUID]struct{}
	tarjetas     map[uuid.UUID]finanzas.Tarjeta
	gastos       map[uuid.UUID]finanzas.Gasto
	unicos       map[uuid.UUID]finanzas.GastoUnico
	recurrentes  map[uuid.UUID]finanzas.GastoRecurrente
	debitos      map[uuid.UUID]finanzas.DebitoAutomatico
	compras      map[uuid.UUID]finanzas.Compra
	// tiposCambio is keyed by date string (one row per day).
	tiposCambio map[string]finanzas.TipoCambio
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]struct{}),
		categorias:   make(map[uuid.UUID]struct{}),
		importancias: make(map[uuid.UUID]struct{}),
		tiposPago:    make(map[uuid.UUID]struct{}),
		tarjetas:     make(map[uuid.UUID]finanzas.Tarjeta),
		gastos:       make(map[uuid.UUID]finanzas.Gasto),
		unicos:       make(map[uuid.UUID]finanzas.GastoUnico),
		recurrentes:  make(map[uuid.UUID]finanzas.GastoRecurrente),
		debitos:      make(map[uuid.UUID]finanzas.DebitoAutomatico),
		compras:      make(map[uuid.UUID]finanzas.Compra),
		tiposCambio:  make(map[string]finanzas.TipoCambio),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u finanzas.User) { s.mu.Lock(); s.users[u.ID] = struct{}{}; s.mu.Unlock() }
func (s *Store) SeedCategoria(id uuid.UUID) {
	s.mu.Lock()
	s.categorias[id] = struct{}{}
	s.mu.Unlock()
}
func (s *Store) SeedImportancia(id uuid.UUID) {
	s.mu.Lock()
	s.importancias[id] = struct{}{}
	s.mu.Unlock()
}
func (s *Store) SeedTipoPago(id uuid.UUID) {
	s.mu.Lock()
	s.tiposPago[id] = struct{}{}
	s.mu.Unlock()
}

func fechaKey(t time.Time) string { return finanzas.SoloFecha(t).Format("2006-01-02") }

// --- Source writes (API surface) ---

func (s *Store) CreateTarjeta(_ context.Context, t finanzas.Tarjeta) (finanzas.Tarjeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tarjetas[t.ID] = t
	return t, nil
}

func (s *Store) CreateGastoUnico(_ context.Context, g finanzas.GastoUnico) (finanzas.GastoUnico, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unicos[g.ID] = g
	return g, nil
}

func (s *Store) CreateGastoRecurrente(_ context.Context, g finanzas.GastoRecurrente) (finanzas.GastoRecurrente, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurrentes[g.ID] = g
	return g, nil
}

func (s *Store) CreateDebitoAutomatico(_ context.Context, d finanzas.DebitoAutomatico) (finanzas.DebitoAutomatico, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debitos[d.ID] = d
	return d, nil
}

func (s *Store) CreateCompra(_ context.Context, c finanzas.Compra) (finanzas.Compra, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Tarjeta = nil // loaded on read
	s.compras[c.ID] = c
	return c, nil
}

// --- Candidate scans ---

func matchUser(rowUser, filtro uuid.UUID) bool {
	return filtro == uuid.Nil || rowUser == filtro
}

// GastosUnicosPendientes returns unprocessed one-off sources.
func (s *Store) GastosUnicosPendientes(_ context.Context, userID uuid.UUID) ([]finanzas.GastoUnico, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finanzas.GastoUnico, 0)
	for _, g := range s.unicos {
		if !g.Procesado && matchUser(g.UserID, userID) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// GastosRecurrentesActivos returns active recurring rules.
func (s *Store) GastosRecurrentesActivos(_ context.Context, userID uuid.UUID) ([]finanzas.GastoRecurrente, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finanzas.GastoRecurrente, 0)
	for _, g := range s.recurrentes {
		if g.Activo && matchUser(g.UserID, userID) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// DebitosAutomaticosActivos returns active automatic debits.
func (s *Store) DebitosAutomaticosActivos(_ context.Context, userID uuid.UUID) ([]finanzas.DebitoAutomatico, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finanzas.DebitoAutomatico, 0)
	for _, d := range s.debitos {
		if d.Activo && matchUser(d.UserID, userID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// ComprasPendientes returns purchases that still owe installments, with the
// card row loaded for billing-cycle math.
func (s *Store) ComprasPendientes(_ context.Context, userID uuid.UUID) ([]finanzas.Compra, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finanzas.Compra, 0)
	for _, c := range s.compras {
		if c.PendienteCuotas && matchUser(c.UserID, userID) {
			out = append(out, s.conTarjetaLocked(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) conTarjetaLocked(c finanzas.Compra) finanzas.Compra {
	if c.TarjetaID != nil {
		if t, ok := s.tarjetas[*c.TarjetaID]; ok {
			c.Tarjeta = &t
		}
	}
	return c
}

// --- Gasto reads ---

// CountGastosPorOrigen counts materialized gastos for one source row.
func (s *Store) CountGastosPorOrigen(_ context.Context, origen finanzas.OriginRef) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countOrigenLocked(origen), nil
}

func (s *Store) countOrigenLocked(origen finanzas.OriginRef) int {
	n := 0
	for _, g := range s.gastos {
		if g.Origen == origen {
			n++
		}
	}
	return n
}

// GastosPorUsuario returns all materialized gastos for a user, oldest first.
func (s *Store) GastosPorUsuario(_ context.Context, userID uuid.UUID) ([]finanzas.Gasto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finanzas.Gasto, 0)
	for _, g := range s.gastos {
		if matchUser(g.UserID, userID) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.Before(out[j].Fecha)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// CheckGastoRefs verifies the three catalog references exist.
func (s *Store) CheckGastoRefs(_ context.Context, _ uuid.UUID, categoriaID, importanciaID, tipoPagoID uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.categorias[categoriaID]; !ok {
		return errs.ErrMissingForeignKey
	}
	if _, ok := s.importancias[importanciaID]; !ok {
		return errs.ErrMissingForeignKey
	}
	if _, ok := s.tiposPago[tipoPagoID]; !ok {
		return errs.ErrMissingForeignKey
	}
	return nil
}

// --- Exchange rates ---

// UpsertTipoCambio stores one rate row per date.
func (s *Store) UpsertTipoCambio(_ context.Context, tc finanzas.TipoCambio) (finanzas.TipoCambio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc.Fecha = finanzas.SoloFecha(tc.Fecha)
	s.tiposCambio[fechaKey(tc.Fecha)] = tc
	return tc, nil
}

// LatestTipoCambio returns the most recent active rate.
func (s *Store) LatestTipoCambio(_ context.Context) (finanzas.TipoCambio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best finanzas.TipoCambio
	found := false
	for _, tc := range s.tiposCambio {
		if !tc.Activo {
			continue
		}
		if !found || tc.Fecha.After(best.Fecha) {
			best = tc
			found = true
		}
	}
	if !found {
		return finanzas.TipoCambio{}, errs.ErrNotFound
	}
	return best, nil
}

// TipoCambioPorFecha returns the active rate for an exact date.
func (s *Store) TipoCambioPorFecha(_ context.Context, fecha time.Time) (finanzas.TipoCambio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tc, ok := s.tiposCambio[fechaKey(fecha)]
	if !ok || !tc.Activo {
		return finanzas.TipoCambio{}, errs.ErrNotFound
	}
	return tc, nil
}

// TipoCambioAnterior returns the closest active rate on or before fecha.
func (s *Store) TipoCambioAnterior(_ context.Context, fecha time.Time) (finanzas.TipoCambio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limite := finanzas.SoloFecha(fecha)
	var best finanzas.TipoCambio
	found := false
	for _, tc := range s.tiposCambio {
		if !tc.Activo || tc.Fecha.After(limite) {
			continue
		}
		if !found || tc.Fecha.After(best.Fecha) {
			best = tc
			found = true
		}
	}
	if !found {
		return finanzas.TipoCambio{}, errs.ErrNotFound
	}
	return best, nil
}

// TiposCambio lists active rates, newest first, within the optional window.
func (s *Store) TiposCambio(_ context.Context, desde, hasta *time.Time, limit int) ([]finanzas.TipoCambio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finanzas.TipoCambio, 0)
	for _, tc := range s.tiposCambio {
		if !tc.Activo {
			continue
		}
		if desde != nil && tc.Fecha.Before(finanzas.SoloFecha(*desde)) {
			continue
		}
		if hasta != nil && tc.Fecha.After(finanzas.SoloFecha(*hasta)) {
			continue
		}
		out = append(out, tc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fecha.After(out[j].Fecha) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Transactions ---

// BeginTx starts a buffered transaction: writes are staged and applied
// atomically on Commit, discarded on Rollback.
func (s *Store) BeginTx(_ context.Context) (generador.Tx, error) {
	return &Tx{s: s}, nil
}
