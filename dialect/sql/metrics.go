package sql

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector exports QueryStats as Prometheus metrics.
//
//	stats := statsDriver.QueryStats()
//	prometheus.MustRegister(sql.NewStatsCollector("app_db", stats))
type StatsCollector struct {
	stats    *QueryStats
	queries  *prometheus.Desc
	execs    *prometheus.Desc
	errors   *prometheus.Desc
	slow     *prometheus.Desc
	duration *prometheus.Desc
	tables   *prometheus.Desc
}

// NewStatsCollector returns a collector reading from stats. Metric names
// are prefixed with namespace.
func NewStatsCollector(namespace string, stats *QueryStats) *StatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	tables := prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "table_statements_total"),
		"Total number of statements per table.", []string{"table"}, nil)
	return &StatsCollector{
		stats:    stats,
		queries:  desc("queries_total", "Total number of read statements executed."),
		execs:    desc("execs_total", "Total number of write statements executed."),
		errors:   desc("errors_total", "Total number of failed statements."),
		slow:     desc("slow_queries_total", "Total number of statements above the slow threshold."),
		duration: desc("duration_seconds_total", "Total time spent executing statements."),
		tables:   tables,
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queries
	ch <- c.execs
	ch <- c.errors
	ch <- c.slow
	ch <- c.duration
	ch <- c.tables
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Stats()
	ch <- prometheus.MustNewConstMetric(c.queries, prometheus.CounterValue, float64(s.TotalQueries))
	ch <- prometheus.MustNewConstMetric(c.execs, prometheus.CounterValue, float64(s.TotalExecs))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
	ch <- prometheus.MustNewConstMetric(c.slow, prometheus.CounterValue, float64(s.SlowQueries))
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.CounterValue, s.TotalDuration.Seconds())
	for table, n := range s.Tables {
		ch <- prometheus.MustNewConstMetric(c.tables, prometheus.CounterValue, float64(n), table)
	}
}

var _ prometheus.Collector = (*StatsCollector)(nil)
