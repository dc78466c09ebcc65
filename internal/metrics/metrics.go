// Package metrics registers the runtime's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DraftSaves counts successful draft writes by tier.
	DraftSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "formstate",
		Subsystem: "draft",
		Name:      "saves_total",
		Help:      "Successful draft saves by storage tier.",
	}, []string{"tier"})

	// AutosaveTicks counts autosave timer firings.
	AutosaveTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "formstate",
		Subsystem: "draft",
		Name:      "autosave_ticks_total",
		Help:      "Autosave timer firings.",
	})

	// Submissions counts submission attempts by outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "formstate",
		Subsystem: "submit",
		Name:      "attempts_total",
		Help:      "Form submission attempts by outcome.",
	}, []string{"outcome"})
)
