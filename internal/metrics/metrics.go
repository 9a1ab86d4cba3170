// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Operations counts planner operations by name and outcome
	// ("ok", "validation", "permission", "not_found", "render", "upstream",
	// "internal").
	Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_operations_total",
		Help: "Planner operations by outcome",
	}, []string{"operation", "outcome"})

	// ExportDuration observes PDF render time, cache hits excluded.
	ExportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wanderplan_export_render_seconds",
		Help:    "Time spent rendering preset PDFs",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	// ExportCache counts export cache lookups by result ("hit", "miss").
	ExportCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_export_cache_total",
		Help: "Export cache lookups by result",
	}, []string{"result"})

	// HTTPRequests counts served requests by method, route pattern and status.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wanderplan_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wanderplan_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// RateLimited counts requests rejected by a rate limiter.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wanderplan_rate_limited_total",
		Help: "Requests rejected with 429",
	})
)

var (
	presetsDesc = prometheus.NewDesc(
		"wanderplan_presets",
		"Number of stored presets",
		nil, nil,
	)
	shareTokensDesc = prometheus.NewDesc(
		"wanderplan_share_tokens",
		"Number of issued share tokens by state",
		[]string{"state"}, nil,
	)
)

// Inventory reports stored record counts. store.PresetStore and
// store.ShareTokenStore together satisfy it through store.Inventory.
type Inventory interface {
	CountPresets(ctx context.Context) (int, error)
	CountShareTokens(ctx context.Context) (live, revoked int, err error)
}

// InventoryCollector is a custom Prometheus collector that reads record
// counts from the store on each scrape.
type InventoryCollector struct {
	inv     Inventory
	timeout time.Duration
}

// NewInventoryCollector creates a collector over inv.
func NewInventoryCollector(inv Inventory) *InventoryCollector {
	return &InventoryCollector{inv: inv, timeout: 5 * time.Second}
}

// Describe sends the metric descriptors to the channel.
func (c *InventoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- presetsDesc
	ch <- shareTokensDesc
}

// Collect queries the store and emits the counts as gauges.
func (c *InventoryCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	presets, err := c.inv.CountPresets(ctx)
	if err != nil {
		slog.Error("failed to collect preset count", "error", err)
	} else {
		ch <- prometheus.MustNewConstMetric(presetsDesc, prometheus.GaugeValue, float64(presets))
	}

	live, revoked, err := c.inv.CountShareTokens(ctx)
	if err != nil {
		slog.Error("failed to collect share token counts", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(shareTokensDesc, prometheus.GaugeValue, float64(live), "live")
	ch <- prometheus.MustNewConstMetric(shareTokensDesc, prometheus.GaugeValue, float64(revoked), "revoked")
}

var registerOnce sync.Once

// Init registers all collectors with the default registry. inv may be nil,
// in which case the inventory gauges are omitted. Must be called once at startup.
func Init(inv Inventory) {
	registerOnce.Do(func() {
		prometheus.MustRegister(Operations, ExportDuration, ExportCache, HTTPRequests, HTTPDuration, RateLimited)
		if inv != nil {
			prometheus.MustRegister(NewInventoryCollector(inv))
		}
	})
}

// RecordOperation increments the operation counter.
func RecordOperation(operation, outcome string) {
	Operations.WithLabelValues(operation, outcome).Inc()
}
