package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exports pgxpool statistics for one named pool.
type PoolStatsCollector struct {
	pool *pgxpool.Pool
	name string

	acquired        *prometheus.Desc
	idle            *prometheus.Desc
	total           *prometheus.Desc
	max             *prometheus.Desc
	acquireCount    *prometheus.Desc
	acquireDuration *prometheus.Desc
	emptyAcquires   *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for pool labelled with name.
func NewPoolStatsCollector(pool *pgxpool.Pool, name string) *PoolStatsCollector {
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc("aisearch_db_pool_"+metric, help, []string{"pool"}, nil)
	}
	return &PoolStatsCollector{
		pool:            pool,
		name:            name,
		acquired:        desc("acquired_connections", "Connections currently acquired."),
		idle:            desc("idle_connections", "Connections currently idle."),
		total:           desc("total_connections", "Connections in the pool."),
		max:             desc("max_connections", "Maximum pool size."),
		acquireCount:    desc("acquire_count_total", "Connection acquires."),
		acquireDuration: desc("acquire_duration_seconds_total", "Time spent acquiring connections."),
		emptyAcquires:   desc("empty_acquire_count_total", "Acquires that waited for a free connection."),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.acquireDuration
	ch <- c.emptyAcquires
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()), c.name)
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()), c.name)
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()), c.name)
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(stat.MaxConns()), c.name)
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(stat.AcquireCount()), c.name)
	ch <- prometheus.MustNewConstMetric(c.acquireDuration, prometheus.CounterValue, stat.AcquireDuration().Seconds(), c.name)
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(stat.EmptyAcquireCount()), c.name)
}

// RegisterPoolMetrics registers a collector for pool with reg and returns a
// func that unregisters it. Registering the same name twice is an error.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, name string) (func(), error) {
	collector := NewPoolStatsCollector(pool, name)
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil, errors.New("pool metrics already registered for " + name)
		}
		return nil, err
	}
	return func() { reg.Unregister(collector) }, nil
}
