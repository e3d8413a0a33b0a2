package altcha

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playaviva_altcha_challenges_issued_total",
		Help: "The number of proof-of-work challenges minted",
	})

	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playaviva_altcha_verifications_total",
		Help: "Challenge payload verifications by result",
	}, []string{"result"})
)
