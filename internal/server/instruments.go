package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// instruments carries the server's prometheus counters on a private
// registry so multiple servers can coexist in one process
type instruments struct {
	registry *prometheus.Registry
	ingested *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

func newInstruments() *instruments {
	ingested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricshub_records_ingested_total",
		Help: "Records committed to the store, by family.",
	}, []string{"family"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricshub_requests_rejected_total",
		Help: "Ingestion requests rejected, by family and reason.",
	}, []string{"family", "reason"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(ingested, rejected)

	return &instruments{
		registry: registry,
		ingested: ingested,
		rejected: rejected,
	}
}

func (i *instruments) handler() http.Handler {
	return promhttp.HandlerFor(i.registry, promhttp.HandlerOpts{})
}
