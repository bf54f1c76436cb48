package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	verificationsTotal *prometheus.CounterVec
	routerDecisions    *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	registryWrites     *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		verificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domain_verifications_total",
				Help: "Domain ownership verification attempts by outcome",
			},
			[]string{"outcome"},
		),
		routerDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domain_router_decisions_total",
				Help: "Hostname router outcomes by branch",
			},
			[]string{"branch"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domain_cache_lookups_total",
				Help: "Binding cache lookups by result",
			},
			[]string{"result"},
		),
		registryWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domain_registry_writes_total",
				Help: "Registry write operations by type",
			},
			[]string{"op"},
		),
	}
}

// A nil collector is valid and records nothing; tests rely on this.

func (c *Collector) RecordVerification(outcome string) {
	if c == nil {
		return
	}
	c.verificationsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRouterDecision(branch string) {
	if c == nil {
		return
	}
	c.routerDecisions.WithLabelValues(branch).Inc()
}

func (c *Collector) RecordCacheLookup(result string) {
	if c == nil {
		return
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) RecordRegistryWrite(op string) {
	if c == nil {
		return
	}
	c.registryWrites.WithLabelValues(op).Inc()
}
