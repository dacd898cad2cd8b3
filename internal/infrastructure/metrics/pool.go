package metrics

import "github.com/prometheus/client_golang/prometheus"

// DBPoolStats is a snapshot of the persistent tier's connection pool.
type DBPoolStats struct {
	AcquireCount         int64
	AcquiredConns        int32
	IdleConns            int32
	TotalConns           int32
	MaxConns             int32
	EmptyAcquireCount    int64
	CanceledAcquireCount int64
}

// DBPoolCollector exports DBPoolStats on every scrape.
type DBPoolCollector struct {
	stats func() DBPoolStats

	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
	acquires *prometheus.Desc
	empty    *prometheus.Desc
	canceled *prometheus.Desc
}

var _ prometheus.Collector = (*DBPoolCollector)(nil)

// NewDBPoolCollector creates a collector reading pool statistics from stats.
func NewDBPoolCollector(stats func() DBPoolStats) *DBPoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db_pool", name), help, nil, nil)
	}
	return &DBPoolCollector{
		stats:    stats,
		acquired: desc("acquired_conns", "Connections currently in use"),
		idle:     desc("idle_conns", "Idle connections"),
		total:    desc("total_conns", "Open connections"),
		max:      desc("max_conns", "Maximum pool size"),
		acquires: desc("acquires_total", "Successful connection acquisitions"),
		empty:    desc("empty_acquires_total", "Acquisitions that waited for a connection"),
		canceled: desc("canceled_acquires_total", "Acquisitions cancelled by their context"),
	}
}

// Describe implements prometheus.Collector.
func (c *DBPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquires
	ch <- c.empty
	ch <- c.canceled
}

// Collect implements prometheus.Collector.
func (c *DBPoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns))
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(s.AcquireCount))
	ch <- prometheus.MustNewConstMetric(c.empty, prometheus.CounterValue, float64(s.EmptyAcquireCount))
	ch <- prometheus.MustNewConstMetric(c.canceled, prometheus.CounterValue, float64(s.CanceledAcquireCount))
}
