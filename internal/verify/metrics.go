package verify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var verificationConflicts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "mathgrade",
		Subsystem: "verify",
		Name:      "conflicts_total",
		Help:      "Verifications where the checker disagreed with the graded answer.",
	},
	[]string{"method"},
)
