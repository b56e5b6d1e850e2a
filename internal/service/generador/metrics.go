package generador

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gastosGenerados = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finanzas",
			Name:      "gastos_generados_total",
			Help:      "Total number of gastos materialized, by origin kind",
		},
		[]string{"tipo"},
	)
	gastosFallidos = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finanzas",
			Name:      "gastos_fallidos_total",
			Help:      "Total number of candidates whose generation failed, by origin kind",
		},
		[]string{"tipo"},
	)
)
