package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astanon_transform_seconds",
		Help:    "Time spent applying or inverting the anonymization over one tree.",
		Buckets: prometheus.DefBuckets,
	}, []string{"direction"})

	RenamedNodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astanon_renamed_nodes_total",
		Help: "Total number of node labels rewritten, by identifier category.",
	}, []string{"category"})

	UnknownNodeKindsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astanon_unknown_node_kinds_total",
		Help: "Total number of nodes passed through because their kind is outside the recognized set.",
	})

	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astanon_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	FilesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astanon_files_processed_total",
		Help: "Total number of files processed, by operation and outcome.",
	}, []string{"operation", "outcome"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astanon_cache_hits_total",
		Help: "Total number of files skipped because their content was already anonymized.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astanon_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
