package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// poolStater is satisfied by *redis.Client.
type poolStater interface {
	PoolStats() *redis.PoolStats
}

// PoolStatsCollector exports go-redis connection pool statistics.
type PoolStatsCollector struct {
	pool poolStater

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	timeouts   *prometheus.Desc
	totalConns *prometheus.Desc
	idleConns  *prometheus.Desc
	staleConns *prometheus.Desc
}

// NewPoolStatsCollector creates a collector reading pool on every scrape.
func NewPoolStatsCollector(pool poolStater) *PoolStatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("storefront_redis_pool_"+name, help, nil, nil)
	}
	return &PoolStatsCollector{
		pool:       pool,
		hits:       desc("hits_total", "Times a free connection was found in the pool."),
		misses:     desc("misses_total", "Times a free connection was not found in the pool."),
		timeouts:   desc("timeouts_total", "Times a wait for a connection timed out."),
		totalConns: desc("connections", "Total connections in the pool."),
		idleConns:  desc("idle_connections", "Idle connections in the pool."),
		staleConns: desc("stale_connections_total", "Stale connections removed from the pool."),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.staleConns
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.PoolStats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(s.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.staleConns, prometheus.CounterValue, float64(s.StaleConns))
}
