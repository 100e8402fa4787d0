// Package metrics exports EPU runtime statistics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogpu/epu"
)

const namespace = "epu"

// StatsSource is implemented by *epu.Runtime.
type StatsSource interface {
	Stats() epu.RuntimeStats
}

// Collector is a prometheus.Collector that reads a runtime's cumulative
// counters on every scrape.
type Collector struct {
	src StatsSource

	builds      *prometheus.Desc
	envBuilds   *prometheus.Desc
	skipped     *prometheus.Desc
	reused      *prometheus.Desc
	fallbacks   *prometheus.Desc
	overflow    *prometheus.Desc
	accelerated *prometheus.Desc
	pending     *prometheus.Desc
	memoEntries *prometheus.Desc
	memoHitRate *prometheus.Desc
	evictions   *prometheus.Desc
}

// NewCollector returns a collector over src. constLabels are attached to
// every metric (e.g. {"runtime": "main"}).
func NewCollector(src StatsSource, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels)
	}
	return &Collector{
		src:         src,
		builds:      desc("builds_total", "Build calls."),
		envBuilds:   desc("env_builds_total", "Environments run through the radiance pipeline."),
		skipped:     desc("env_skipped_total", "Active environments skipped because their maps were current."),
		reused:      desc("env_reused_total", "Environments served from retained static builds."),
		fallbacks:   desc("accelerator_fallbacks_total", "Batches rebuilt on the CPU after the accelerator declined or failed."),
		overflow:    desc("active_overflow_total", "Environment ids dropped by the active list cap."),
		accelerated: desc("env_accelerated_total", "Environments built by the accelerator."),
		pending:     desc("env_pending", "Environments changed since their last build."),
		memoEntries: desc("memo_entries", "Retained static builds."),
		memoHitRate: desc("memo_hit_ratio", "Hit ratio of retained static build lookups."),
		evictions:   desc("memo_evictions_total", "Retained static builds evicted."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.builds, c.envBuilds, c.skipped, c.reused, c.fallbacks, c.overflow,
		c.accelerated, c.pending, c.memoEntries, c.memoHitRate, c.evictions,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter(c.builds, s.Builds)
	counter(c.envBuilds, s.EnvBuilds)
	counter(c.skipped, s.Skipped)
	counter(c.reused, s.Reused)
	counter(c.fallbacks, s.Fallbacks)
	counter(c.overflow, s.Overflow)
	counter(c.accelerated, s.Accelerated)
	gauge(c.pending, float64(s.Pending))
	gauge(c.memoEntries, float64(s.MemoEntries))
	gauge(c.memoHitRate, s.MemoHitRate)
	counter(c.evictions, s.MemoEvictions)
}

// Serve exposes reg on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	epu.Logger().Info("epu: metrics listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
