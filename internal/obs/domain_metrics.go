package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesFinalizedTotal counts finalize attempts by outcome.
	SalesFinalizedTotal *prometheus.CounterVec
	// TendersTotal counts tenders applied to sales by method.
	TendersTotal *prometheus.CounterVec
	// SessionsClosedTotal counts closed cash sessions by count classification.
	SessionsClosedTotal *prometheus.CounterVec
	// DrawerVariance records the signed closing difference per register.
	DrawerVariance *prometheus.GaugeVec
	// CollaboratorRequestTotal counts outbound collaborator calls by target
	// and outcome.
	CollaboratorRequestTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesFinalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_finalized_total",
			Help:      "Count of sale finalize attempts by outcome.",
		}, []string{"result"})
		TendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenders_total",
			Help:      "Count of tenders applied to sales by payment method.",
		}, []string{"method"})
		SessionsClosedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Count of closed cash sessions by count classification.",
		}, []string{"classification"})
		DrawerVariance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drawer_variance",
			Help:      "Signed counted-minus-expected difference at last session close.",
		}, []string{"register"})
		CollaboratorRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_request_total",
			Help:      "Count of outbound collaborator requests by target and result.",
		}, []string{"target", "result"})

		mustRegisterCollector(reg, SalesFinalizedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesFinalizedTotal = v
			}
		})
		mustRegisterCollector(reg, TendersTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TendersTotal = v
			}
		})
		mustRegisterCollector(reg, SessionsClosedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SessionsClosedTotal = v
			}
		})
		mustRegisterCollector(reg, DrawerVariance, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.GaugeVec); ok {
				DrawerVariance = v
			}
		})
		mustRegisterCollector(reg, CollaboratorRequestTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CollaboratorRequestTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
