// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every metric the engine reports.
type Collector struct {
	orchestrations     prometheus.Counter
	orchestrationTime  prometheus.Histogram
	scheduleWarnings   prometheus.Counter
	statusChanges      *prometheus.CounterVec
	rebalances         prometheus.Counter
	rebalanceBatchSize prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	optimizationTime   *prometheus.HistogramVec
	optimizationIters  *prometheus.HistogramVec
	tasksByStatus      *prometheus.GaugeVec
}

func NewCollector() *Collector {
	c := &Collector{
		orchestrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskloom_orchestrations_total",
			Help: "Total number of orchestration runs",
		}),
		orchestrationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskloom_orchestration_seconds",
			Help:    "Orchestration run latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		scheduleWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskloom_schedule_warnings_total",
			Help: "Total warnings emitted by scheduling passes",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskloom_status_changes_total",
			Help: "Task status transitions applied",
		}, []string{"status"}),
		rebalances: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskloom_rebalances_total",
			Help: "Debounced rebalance runs triggered",
		}),
		rebalanceBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskloom_rebalance_batch_size",
			Help:    "Events batched into one rebalance window",
			Buckets: []float64{1, 2, 5, 10, 25, 50},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskloom_cache_hits_total",
			Help: "Result cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskloom_cache_misses_total",
			Help: "Result cache misses",
		}),
		optimizationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskloom_optimization_seconds",
			Help:    "Optimization run latency in seconds by strategy",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
		optimizationIters: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskloom_optimization_iterations",
			Help:    "Iterations or generations consumed by strategy",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"strategy"}),
		tasksByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taskloom_tasks",
			Help: "Current tasks by status",
		}, []string{"status"}),
	}

	prometheus.MustRegister(
		c.orchestrations,
		c.orchestrationTime,
		c.scheduleWarnings,
		c.statusChanges,
		c.rebalances,
		c.rebalanceBatchSize,
		c.cacheHits,
		c.cacheMisses,
		c.optimizationTime,
		c.optimizationIters,
		c.tasksByStatus,
	)
	return c
}

func (c *Collector) RecordOrchestration(d time.Duration, warnings int) {
	c.orchestrations.Inc()
	c.orchestrationTime.Observe(d.Seconds())
	c.scheduleWarnings.Add(float64(warnings))
}

func (c *Collector) RecordStatusChange(status string) {
	c.statusChanges.WithLabelValues(status).Inc()
}

func (c *Collector) RecordRebalance(batchSize int) {
	c.rebalances.Inc()
	c.rebalanceBatchSize.Observe(float64(batchSize))
}

func (c *Collector) RecordCache(hit bool) {
	if hit {
		c.cacheHits.Inc()
		return
	}
	c.cacheMisses.Inc()
}

func (c *Collector) RecordOptimization(strategy string, d time.Duration, iterations int) {
	c.optimizationTime.WithLabelValues(strategy).Observe(d.Seconds())
	c.optimizationIters.WithLabelValues(strategy).Observe(float64(iterations))
}

func (c *Collector) SetTasksByStatus(counts map[string]int) {
	c.tasksByStatus.Reset()
	for status, n := range counts {
		c.tasksByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// Handler serves the Prometheus scrape endpoint.
func (c *Collector) Handler() http.Handler { return promhttp.Handler() }
