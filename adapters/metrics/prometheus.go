package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aegis-id/aegis/core"
)

// StatsSource provides the engine stats snapshot. The facade
// satisfies it.
type StatsSource interface {
	GetStats(ctx context.Context) (core.StatsSnapshot, error)
}

// Collector exports the engine's stats snapshot as Prometheus
// metrics. It reads on scrape; the snapshot is advisory and never
// perturbs the counters it reports.
type Collector struct {
	source StatsSource

	totalDesc   *prometheus.Desc
	successDesc *prometheus.Desc
	failedDesc  *prometheus.Desc
	avgDesc     *prometheus.Desc
	activeDesc  *prometheus.Desc
	lockedDesc  *prometheus.Desc
}

// NewCollector creates a collector over source.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		totalDesc: prometheus.NewDesc("aegis_auth_requests_total",
			"Total authentication attempts.", nil, nil),
		successDesc: prometheus.NewDesc("aegis_auth_requests_successful_total",
			"Successful authentication attempts.", nil, nil),
		failedDesc: prometheus.NewDesc("aegis_auth_requests_failed_total",
			"Failed authentication attempts.", nil, nil),
		avgDesc: prometheus.NewDesc("aegis_auth_processing_seconds_avg",
			"Running mean of authentication processing time.", nil, nil),
		activeDesc: prometheus.NewDesc("aegis_active_sessions",
			"Sessions that are neither revoked nor expired.", nil, nil),
		lockedDesc: prometheus.NewDesc("aegis_locked_users",
			"Users inside an open lockout window.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalDesc
	ch <- c.successDesc
	ch <- c.failedDesc
	ch <- c.avgDesc
	ch <- c.activeDesc
	ch <- c.lockedDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := c.source.GetStats(ctx)
	if err != nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.CounterValue, float64(snap.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.successDesc, prometheus.CounterValue, float64(snap.SuccessfulRequests))
	ch <- prometheus.MustNewConstMetric(c.failedDesc, prometheus.CounterValue, float64(snap.FailedRequests))
	ch <- prometheus.MustNewConstMetric(c.avgDesc, prometheus.GaugeValue, snap.AverageProcessingTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.activeDesc, prometheus.GaugeValue, float64(snap.ActiveSessions))
	ch <- prometheus.MustNewConstMetric(c.lockedDesc, prometheus.GaugeValue, float64(snap.LockedUsers))
}

var _ prometheus.Collector = (*Collector)(nil)
