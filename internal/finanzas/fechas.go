package finanzas

import "time"

// SoloFecha strips the time-of-day and timezone from t, leaving a plain
// calendar date at midnight UTC. All generation logic compares dates in this
// normalized form.
func SoloFecha(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MismoDia reports whether a and b fall on the same calendar date.
func MismoDia(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MismoMes reports whether a and b fall in the same (month, year) pair.
func MismoMes(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// UltimoDiaDelMes returns the number of days in the given month.
func UltimoDiaDelMes(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDia degrades a configured day-of-month to the last day of the target
// month when the original day does not exist there (31 -> 28/29/30).
func ClampDia(year int, month time.Month, dia int) int {
	if last := UltimoDiaDelMes(year, month); dia > last {
		return last
	}
	return dia
}

// AgregarMeses advances a date by n calendar months, clamping the day-of-month
// to the last day of the target month. Unlike time.AddDate it never rolls over
// into the following month (Jan 31 + 1 month = Feb 28/29, not Mar 2/3).
func AgregarMeses(fecha time.Time, n int) time.Time {
	fecha = SoloFecha(fecha)
	y, m, d := fecha.Date()
	total := int(m) - 1 + n
	ty := y + total/12
	tm := time.Month(total%12 + 1)
	if total < 0 {
		ty = y + (total-11)/12
		tm = time.Month((total%12+12)%12 + 1)
	}
	return time.Date(ty, tm, ClampDia(ty, tm, d), 0, 0, 0, 0, time.UTC)
}

// MesesTranscurridos returns the count of whole (month, year) steps between
// two dates, ignoring the day component.
func MesesTranscurridos(desde, hasta time.Time) int {
	return (hasta.Year()-desde.Year())*12 + int(hasta.Month()) - int(desde.Month())
}
