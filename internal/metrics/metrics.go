// Package metrics exposes engagement counters to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "threadspire"

var (
	ThreadsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "threads_created_total",
		Help:      "Threads created, by initial status.",
	}, []string{"status"})

	ThreadsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "threads_published_total",
		Help:      "Drafts published as new thread documents.",
	})

	ThreadsForked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "threads_forked_total",
		Help:      "Threads created as forks of a published thread.",
	})

	ThreadsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "threads_deleted_total",
		Help:      "Threads deleted, by status at deletion time.",
	}, []string{"status"})

	Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reactions_total",
		Help:      "Reaction toggles, by emoji and resulting action.",
	}, []string{"emoji", "action"})

	Bookmarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookmarks_total",
		Help:      "Bookmark toggles, by action.",
	}, []string{"action"})

	StaleWriteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_write_retries_total",
		Help:      "Optimistic concurrency retries, by operation.",
	}, []string{"operation"})

	AnalyticsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analytics_cache_lookups_total",
		Help:      "Analytics cache lookups, by result.",
	}, []string{"result"})
)
