package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/gogpu/epu"
)

type fixedStats epu.RuntimeStats

func (f fixedStats) Stats() epu.RuntimeStats { return epu.RuntimeStats(f) }

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.Metric {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]*dto.Metric{}
	for _, mf := range families {
		out[mf.GetName()] = mf.GetMetric()[0]
	}
	return out
}

func TestCollectorValues(t *testing.T) {
	got := gather(t, NewCollector(fixedStats{
		Builds:      3,
		EnvBuilds:   5,
		Skipped:     7,
		Fallbacks:   1,
		Overflow:    2,
		Pending:     4,
		MemoHitRate: 0.5,
	}, nil))

	if len(got) != 11 {
		t.Errorf("gathered %d metrics, want 11", len(got))
	}
	counters := map[string]float64{
		"epu_builds_total":                3,
		"epu_env_builds_total":            5,
		"epu_env_skipped_total":           7,
		"epu_accelerator_fallbacks_total": 1,
		"epu_active_overflow_total":       2,
	}
	for name, want := range counters {
		m, ok := got[name]
		if !ok || m.GetCounter() == nil {
			t.Errorf("%s: missing counter", name)
			continue
		}
		if v := m.GetCounter().GetValue(); v != want {
			t.Errorf("%s = %v, want %v", name, v, want)
		}
	}
	if v := got["epu_env_pending"].GetGauge().GetValue(); v != 4 {
		t.Errorf("epu_env_pending = %v, want 4", v)
	}
	if v := got["epu_memo_hit_ratio"].GetGauge().GetValue(); v != 0.5 {
		t.Errorf("epu_memo_hit_ratio = %v, want 0.5", v)
	}
}

func TestCollectorWithRuntime(t *testing.T) {
	epu.UnregisterAccelerator()
	rt, err := epu.NewRuntime(epu.WithMapSize(16), epu.WithWorkers(1))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()
	env, _ := epu.Preset("studio")
	if err := rt.SetEnvironment(0, env); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if _, err := rt.Build(context.Background(), []uint32{0}, 0); err != nil {
			t.Fatal(err)
		}
	}

	got := map[string]float64{}
	for name, m := range gather(t, NewCollector(rt, prometheus.Labels{"runtime": "test"})) {
		if l := m.GetLabel(); len(l) != 1 || l[0].GetValue() != "test" {
			t.Errorf("%s: missing const label", name)
		}
		if m.GetCounter() != nil {
			got[name] = m.GetCounter().GetValue()
		}
	}
	if got["epu_builds_total"] != 2 {
		t.Errorf("builds = %v, want 2", got["epu_builds_total"])
	}
	if got["epu_env_builds_total"] != 1 {
		t.Errorf("env builds = %v, want 1", got["epu_env_builds_total"])
	}
	if got["epu_env_skipped_total"] != 1 {
		t.Errorf("skipped = %v, want 1", got["epu_env_skipped_total"])
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", prometheus.NewRegistry()) }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve() = %v, want nil after cancel", err)
	}
}
