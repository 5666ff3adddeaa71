// Package metrics declares the portal's Prometheus collectors.  They are
// registered on the default registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var SignupVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "fraud",
	Name:      "signup_verdicts_total",
	Help:      "Signup validations by outcome.",
}, []string{"outcome"})

var FraudLookupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "fraud",
	Name:      "lookup_failures_total",
	Help:      "Fraud lookups that failed open.",
}, []string{"check"})

var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Ledger operations by kind and result.",
}, []string{"op", "result"})

var CreditsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "ledger",
	Name:      "credits_total",
	Help:      "Credits granted or deducted, by reason.",
}, []string{"reason"})

var Votes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "engagement",
	Name:      "votes_total",
	Help:      "Vote attempts by result.",
}, []string{"result"})

var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Activity events handed to the broker, by result.",
}, []string{"result"})

var EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "events",
	Name:      "dropped_total",
	Help:      "Activity events dropped because the dispatch buffer was full.",
})

var EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "portal",
	Subsystem: "events",
	Name:      "queue_depth",
	Help:      "Events waiting in the in-process dispatch buffer.",
})

var SheetPosts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "sheetlog",
	Name:      "posts_total",
	Help:      "Activity log webhook posts by sheet and result.",
}, []string{"sheet", "result"})

var SheetLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "portal",
	Subsystem: "sheetlog",
	Name:      "post_duration_seconds",
	Help:      "Latency of activity log webhook posts.",
	Buckets:   prometheus.DefBuckets,
})

var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "http",
	Name:      "cache_lookups_total",
	Help:      "Response cache lookups by result.",
}, []string{"result"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "portal",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the API token bucket.",
})
