// Package metrics provides in-memory runtime statistics collection,
// mirrored into Prometheus for scraping.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Size metrics (only for LLM operations), in characters
	TotalPromptChars int64
	TotalAnswerChars int64
	MaxPromptChars   int64
	MaxAnswerChars   int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	Failures    int64   `json:"failures"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`

	// Size stats (nil if not applicable)
	AvgPromptChars *float64 `json:"avg_prompt_chars,omitempty"`
	AvgAnswerChars *float64 `json:"avg_answer_chars,omitempty"`
	MaxPromptChars *int64   `json:"max_prompt_chars,omitempty"`
	MaxAnswerChars *int64   `json:"max_answer_chars,omitempty"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Search        *OperationSnapshot `json:"search,omitempty"`
	LLMGenerate   *OperationSnapshot `json:"llm_generate,omitempty"`
	Submit        *OperationSnapshot `json:"submit,omitempty"`
}

// Operation names for the collector.
const (
	OpSearch      = "search"
	OpLLMGenerate = "llm_generate"
	OpSubmit      = "submit"
)

// Outcome labels recorded with every operation.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe and safe to call on a nil *Collector.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics

	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with its own Prometheus registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "askweb",
		Name:      "operation_duration_seconds",
		Help:      "Duration of outbound search, inference and whole submit operations.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"op"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "askweb",
		Name:      "operations_total",
		Help:      "Operations by outcome.",
	}, []string{"op", "outcome"})

	registry.MustRegister(duration, total)

	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		registry:  registry,
		duration:  duration,
		total:     total,
	}
}

// Registry exposes the Prometheus registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// record updates timing aggregates. Caller must hold write lock.
func (m *OperationMetrics) record(duration time.Duration, outcome string) {
	m.Count++
	if outcome == OutcomeError {
		m.Failures++
	}
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordTiming records timing and outcome for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration, outcome string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.getOrCreate(op).record(duration, outcome)
	c.mu.Unlock()

	c.observe(op, duration, outcome)
}

// RecordLLMUsage records timing, outcome and prompt/answer sizes for an LLM operation.
func (c *Collector) RecordLLMUsage(op string, duration time.Duration, outcome string, promptChars, answerChars int64) {
	if c == nil {
		return
	}

	c.mu.Lock()
	m := c.getOrCreate(op)
	m.record(duration, outcome)
	m.TotalPromptChars += promptChars
	m.TotalAnswerChars += answerChars
	if promptChars > m.MaxPromptChars {
		m.MaxPromptChars = promptChars
	}
	if answerChars > m.MaxAnswerChars {
		m.MaxAnswerChars = answerChars
	}
	c.mu.Unlock()

	c.observe(op, duration, outcome)
}

func (c *Collector) observe(op string, duration time.Duration, outcome string) {
	c.duration.WithLabelValues(op).Observe(duration.Seconds())
	c.total.WithLabelValues(op, outcome).Inc()
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeSizes bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		Failures:    m.Failures,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeSizes && (m.TotalPromptChars > 0 || m.TotalAnswerChars > 0) {
		avgPrompt := float64(m.TotalPromptChars) / float64(m.Count)
		avgAnswer := float64(m.TotalAnswerChars) / float64(m.Count)
		maxPrompt := m.MaxPromptChars
		maxAnswer := m.MaxAnswerChars

		snap.AvgPromptChars = &avgPrompt
		snap.AvgAnswerChars = &avgAnswer
		snap.MaxPromptChars = &maxPrompt
		snap.MaxAnswerChars = &maxAnswer
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Search:        snapshotOp(c.ops[OpSearch], false),
		LLMGenerate:   snapshotOp(c.ops[OpLLMGenerate], true),
		Submit:        snapshotOp(c.ops[OpSubmit], false),
	}
}
