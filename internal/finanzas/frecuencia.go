package finanzas

// Frecuencia enumerates the supported recurrence cadences.
type Frecuencia string

const (
	FrecuenciaSemanal    Frecuencia = "semanal"
	FrecuenciaQuincenal  Frecuencia = "quincenal"
	FrecuenciaMensual    Frecuencia = "mensual"
	FrecuenciaBimestral  Frecuencia = "bimestral"
	FrecuenciaTrimestral Frecuencia = "trimestral"
	FrecuenciaSemestral  Frecuencia = "semestral"
	FrecuenciaAnual      Frecuencia = "anual"
)

// Dias returns the approximate day count between occurrences. The table is a
// deliberate approximation (mensual != true month length); generation relies
// on the day-of-month gate for exactness and on this table only as a minimum
// elapsed-days guard.
func (f Frecuencia) Dias() int {
	switch f {
	case FrecuenciaSemanal:
		return 7
	case FrecuenciaQuincenal:
		return 15
	case FrecuenciaMensual:
		return 30
	case FrecuenciaBimestral:
		return 60
	case FrecuenciaTrimestral:
		return 90
	case FrecuenciaSemestral:
		return 182
	case FrecuenciaAnual:
		return 365
	}
	return 0
}

// Meses returns the cadence in whole months, used by automatic debits that
// track generation by (month, year) pair. Sub-monthly cadences map to 1.
func (f Frecuencia) Meses() int {
	switch f {
	case FrecuenciaSemanal, FrecuenciaQuincenal, FrecuenciaMensual:
		return 1
	case FrecuenciaBimestral:
		return 2
	case FrecuenciaTrimestral:
		return 3
	case FrecuenciaSemestral:
		return 6
	case FrecuenciaAnual:
		return 12
	}
	return 0
}

// Valida reports whether the cadence is one of the supported values.
func (f Frecuencia) Valida() bool { return f.Dias() > 0 }
