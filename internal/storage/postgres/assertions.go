package postgres

import (
	"github.com/mlorenzo/finanzas/internal/service/cambio"
	"github.com/mlorenzo/finanzas/internal/service/generador"
)

// Compile-time checks that the store satisfies the service interfaces.
var (
	_ generador.Repo      = (*Store)(nil)
	_ generador.TxManager = (*Store)(nil)
	_ generador.Tx        = (*Tx)(nil)
	_ cambio.Repo         = (*Store)(nil)
	_ cambio.Writer       = (*Store)(nil)
)
