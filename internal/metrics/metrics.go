// Package metrics exposes the pipeline's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters. One instance is wired through the
// container; tests create their own with a private registry.
type Metrics struct {
	DocumentsProcessed    *prometheus.CounterVec
	FallbackCalls         prometheus.Counter
	FallbackFailures      prometheus.Counter
	RateLookupFailures    prometheus.Counter
	DuplicatesSkipped     prometheus.Counter
	TransactionsPersisted prometheus.Counter
	SyncPagesFetched      *prometheus.CounterVec
}

// New registers the pipeline metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerpipe_documents_processed_total",
			Help: "Documents processed, labeled by extraction method.",
		}, []string{"method"}),
		FallbackCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerpipe_fallback_calls_total",
			Help: "AI fallback extraction invocations.",
		}),
		FallbackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerpipe_fallback_failures_total",
			Help: "AI fallback extraction failures.",
		}),
		RateLookupFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerpipe_rate_lookup_failures_total",
			Help: "Exchange rate lookups that left a transaction unconverted.",
		}),
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerpipe_duplicates_skipped_total",
			Help: "Transactions skipped by the dedup gate.",
		}),
		TransactionsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerpipe_transactions_persisted_total",
			Help: "Transactions written by the persistence gate.",
		}),
		SyncPagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerpipe_sync_pages_fetched_total",
			Help: "Provider API pages fetched, labeled by provider.",
		}, []string{"provider"}),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
