// Package metrics provides a small Prometheus-compatible collector that
// renders text/plain exposition format without pulling in the full
// prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Registry holds all registered metrics and renders them for scraping.
type Registry struct {
	mu         sync.Mutex
	counters   []*Counter
	gauges     []*Gauge
	histograms []*Histogram
	startTime  time.Time
}

func NewRegistry() *Registry {
	return &Registry{startTime: time.Now()}
}

// Default is the process-wide registry.
var Default = NewRegistry()

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.counters {
		if c.name == name {
			return c
		}
	}
	c := &Counter{name: name, help: help}
	r.counters = append(r.counters, c)
	return c
}

func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gauges {
		if g.name == name {
			return g
		}
	}
	g := &Gauge{name: name, help: help}
	r.gauges = append(r.gauges, g)
	return g
}

func (r *Registry) Histogram(name, help string, bounds []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.histograms {
		if h.name == name {
			return h
		}
	}
	sort.Float64s(bounds)
	h := &Histogram{
		name:    name,
		help:    help,
		bounds:  bounds,
		buckets: make([]int64, len(bounds)),
	}
	r.histograms = append(r.histograms, h)
	return h
}

// Handler renders the registry in Prometheus text exposition format.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, r.render())
	}
}

func (r *Registry) render() string {
	r.mu.Lock()
	counters := append([]*Counter(nil), r.counters...)
	gauges := append([]*Gauge(nil), r.gauges...)
	histograms := append([]*Histogram(nil), r.histograms...)
	uptime := int64(time.Since(r.startTime).Seconds())
	r.mu.Unlock()

	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP memebot_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE memebot_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "memebot_uptime_seconds %d\n", uptime)

	for _, c := range counters {
		fmt.Fprintf(&sb, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(&sb, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(&sb, "%s %d\n", c.name, c.Value())
	}

	for _, g := range gauges {
		fmt.Fprintf(&sb, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(&sb, "# TYPE %s gauge\n", g.name)
		fmt.Fprintf(&sb, "%s %d\n", g.name, g.Value())
	}

	for _, h := range histograms {
		h.mu.Lock()
		fmt.Fprintf(&sb, "# HELP %s %s\n", h.name, h.help)
		fmt.Fprintf(&sb, "# TYPE %s histogram\n", h.name)
		for i, le := range h.bounds {
			fmt.Fprintf(&sb, "%s_bucket{le=\"%g\"} %d\n", h.name, le, h.buckets[i])
		}
		fmt.Fprintf(&sb, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count)
		fmt.Fprintf(&sb, "%s_count %d\n", h.name, h.count)
		fmt.Fprintf(&sb, "%s_sum %f\n", h.name, h.sum)
		h.mu.Unlock()
	}

	return sb.String()
}

// Metrics used across the application.
var (
	MessagesTotal      = Default.Counter("memebot_messages_total", "Inbound messages dispatched")
	UnknownCommands    = Default.Counter("memebot_unknown_commands_total", "Messages with an unrecognized keyword")
	MemesGenerated     = Default.Counter("memebot_memes_generated_total", "Memes generated successfully")
	GenerationFailures = Default.Counter("memebot_generation_failures_total", "Meme generations that failed")
	GatewayPolls       = Default.Counter("memebot_gateway_polls_total", "Polling round-trips while waiting for a message")

	ImgflipLatency = Default.Histogram("memebot_imgflip_latency_seconds", "Imgflip API request latency in seconds",
		[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30})
)
