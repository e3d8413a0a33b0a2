package dossier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dossiersGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "playaviva_dossiers_generated_total",
	Help: "The number of dossier personalization attempts by storage backend and outcome",
}, []string{"backend", "outcome"})
