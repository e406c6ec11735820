// Package promstats exports owned allocator counters to Prometheus.
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavanmanishd/owned"
)

// ArenaSource names an arena whose metrics should be exported.
type ArenaSource struct {
	Name    string
	Metrics func() owned.ArenaMetrics
}

// Collector implements prometheus.Collector over Tracked allocators and
// arenas. Values are read at scrape time.
type Collector struct {
	tracked []*owned.Tracked
	arenas  []ArenaSource

	allocations *prometheus.Desc
	frees       *prometheus.Desc
	failures    *prometheus.Desc
	liveBlocks  *prometheus.Desc
	liveBytes   *prometheus.Desc
	totalBytes  *prometheus.Desc
	arenaInUse  *prometheus.Desc
	arenaCap    *prometheus.Desc
	arenaChunks *prometheus.Desc
}

// NewCollector returns a collector for the given tracked allocators.
func NewCollector(namespace string, tracked ...*owned.Tracked) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, []string{"allocator"}, nil)
	}
	return &Collector{
		tracked:     tracked,
		allocations: desc("allocations_total", "Blocks handed out by the allocator"),
		frees:       desc("frees_total", "Blocks returned to the allocator"),
		failures:    desc("failures_total", "Failed allocate or free calls"),
		liveBlocks:  desc("live_blocks", "Blocks allocated and not yet freed"),
		liveBytes:   desc("live_bytes", "Bytes allocated and not yet freed"),
		totalBytes:  desc("allocated_bytes_total", "Bytes handed out since start"),
		arenaInUse:  desc("arena_bytes_in_use", "Arena bytes handed out since the last reset"),
		arenaCap:    desc("arena_capacity_bytes", "Arena chunk capacity"),
		arenaChunks: desc("arena_chunks", "Arena chunk count"),
	}
}

// AddArena adds an arena to the collector. Call before registering.
func (c *Collector) AddArena(src ArenaSource) {
	c.arenas = append(c.arenas, src)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.allocations, c.frees, c.failures, c.liveBlocks, c.liveBytes, c.totalBytes,
		c.arenaInUse, c.arenaCap, c.arenaChunks,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, t := range c.tracked {
		s, name := t.Stats(), t.Name()
		ch <- prometheus.MustNewConstMetric(c.allocations, prometheus.CounterValue, float64(s.Allocations), name)
		ch <- prometheus.MustNewConstMetric(c.frees, prometheus.CounterValue, float64(s.Frees), name)
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures), name)
		ch <- prometheus.MustNewConstMetric(c.liveBlocks, prometheus.GaugeValue, float64(s.LiveBlocks), name)
		ch <- prometheus.MustNewConstMetric(c.liveBytes, prometheus.GaugeValue, float64(s.LiveBytes), name)
		ch <- prometheus.MustNewConstMetric(c.totalBytes, prometheus.CounterValue, float64(s.TotalBytes), name)
	}
	for _, a := range c.arenas {
		m := a.Metrics()
		ch <- prometheus.MustNewConstMetric(c.arenaInUse, prometheus.GaugeValue, float64(m.SizeInUse), a.Name)
		ch <- prometheus.MustNewConstMetric(c.arenaCap, prometheus.GaugeValue, float64(m.Capacity), a.Name)
		ch <- prometheus.MustNewConstMetric(c.arenaChunks, prometheus.GaugeValue, float64(m.NumChunks), a.Name)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
