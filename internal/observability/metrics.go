package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by keyspace and result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_cache_lookups_total",
		Help: "Cache-aside lookups by keyspace and result",
	}, []string{"keyspace", "result"})

	// TagResolutions counts tag lookups by outcome (existing, created, raced).
	TagResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_tag_resolutions_total",
		Help: "Tag get-or-create outcomes",
	}, []string{"outcome"})

	// EngagementChanges counts like and bookmark writes by kind and outcome.
	EngagementChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_engagement_changes_total",
		Help: "Like and bookmark writes by kind and outcome",
	}, []string{"kind", "outcome"})

	// PostTransitions counts post lifecycle changes by action.
	PostTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_post_transitions_total",
		Help: "Post lifecycle changes by action",
	}, []string{"action"})

	// QueryDuration records query engine latency by sort order.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quill_query_duration_seconds",
		Help:    "Post query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"sort"})
)
