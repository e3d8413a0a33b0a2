package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playaviva_leads_processed_total",
		Help: "The number of validated leads by aggregate outcome",
	}, []string{"outcome"})

	crmSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playaviva_hubspot_submissions_total",
		Help: "The number of HubSpot form submissions by result",
	}, []string{"result"})

	emailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playaviva_emails_total",
		Help: "The number of transactional emails by kind and result",
	}, []string{"kind", "result"})
)
