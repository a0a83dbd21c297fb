// Package metrics exposes lobby and setup activity to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

const namespace = "ninjanight"

// Collector owns a registry and every lobby metric. A nil *Collector is valid
// and records nothing.
type Collector struct {
	registry *prometheus.Registry
	log      *zap.Logger

	joins          *prometheus.CounterVec
	leaves         *prometheus.CounterVec
	heartbeats     *prometheus.CounterVec
	roomsCreated   prometheus.Counter
	setupRuns      *prometheus.CounterVec
	setupStep      *prometheus.HistogramVec
	activeSessions prometheus.Gauge

	processCPU    prometheus.Gauge
	processRSS    prometheus.Gauge
	hostMemoryPct prometheus.Gauge
}

// New creates a collector with its own registry.
func New(log *zap.Logger) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		log:      log,
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_joins_total",
			Help:      "Join attempts by outcome.",
		}, []string{"outcome"}),
		leaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_leaves_total",
			Help:      "Rooms left, split by whether the leaver was the host.",
		}, []string{"role"}),
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Heartbeat writes by result.",
		}, []string{"result"}),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms opened through the directory.",
		}),
		setupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setup_runs_total",
			Help:      "Host setup runs by outcome.",
		}, []string{"outcome"}),
		setupStep: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "setup_step_duration_seconds",
			Help:      "Duration of each host setup step.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"step"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Lobby client sessions currently held by the gateway.",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of this process.",
		}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_resident_memory_bytes",
			Help:      "Resident memory of this process.",
		}),
		hostMemoryPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_memory_used_percent",
			Help:      "Memory in use on the host.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		c.joins, c.leaves, c.heartbeats, c.roomsCreated,
		c.setupRuns, c.setupStep, c.activeSessions,
		c.processCPU, c.processRSS, c.hostMemoryPct,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) JoinAttempt(outcome string) {
	if c == nil {
		return
	}
	c.joins.WithLabelValues(outcome).Inc()
}

func (c *Collector) Leave(host bool) {
	if c == nil {
		return
	}
	role := "guest"
	if host {
		role = "host"
	}
	c.leaves.WithLabelValues(role).Inc()
}

func (c *Collector) Heartbeat(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.heartbeats.WithLabelValues(result).Inc()
}

func (c *Collector) RoomCreated() {
	if c == nil {
		return
	}
	c.roomsCreated.Inc()
}

func (c *Collector) SetupRun(outcome string) {
	if c == nil {
		return
	}
	c.setupRuns.WithLabelValues(outcome).Inc()
}

func (c *Collector) SetupStep(step string, d time.Duration) {
	if c == nil {
		return
	}
	c.setupStep.WithLabelValues(step).Observe(d.Seconds())
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}

// RunProcessSampler samples process CPU and memory every interval until ctx
// is done.
func (c *Collector) RunProcessSampler(ctx context.Context, interval time.Duration) {
	if c == nil || interval <= 0 {
		return
	}
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		c.log.Warn("process sampler disabled", zap.Error(err))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		c.sample(ctx, proc)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Collector) sample(ctx context.Context, proc *process.Process) {
	if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
		c.processCPU.Set(pct)
	} else {
		c.log.Debug("cpu sample failed", zap.Error(err))
	}
	if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
		c.processRSS.Set(float64(info.RSS))
	} else {
		c.log.Debug("memory sample failed", zap.Error(err))
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		c.hostMemoryPct.Set(vm.UsedPercent)
	}
}
