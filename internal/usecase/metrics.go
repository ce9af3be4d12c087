package usecase

import (
	"sync"
	"time"
)

// MetricsSummary represents aggregated submission insights for this process.
type MetricsSummary struct {
	TotalSubmissions      int64            `json:"total_submissions"`
	SuccessfulSubmissions int64            `json:"successful_submissions"`
	SuccessRate           float64          `json:"success_rate"`
	AverageLatencyMs      float64          `json:"average_latency_ms"`
	Failures              map[string]int64 `json:"failures"`
}

// submissionMetrics counts attempts that reached the backend and those
// rejected before it. Latency only covers attempts that sent a request.
type submissionMetrics struct {
	mu           sync.Mutex
	total        int64
	successes    int64
	sent         int64
	totalLatency time.Duration
	failures     map[Kind]int64
}

func newSubmissionMetrics() *submissionMetrics {
	return &submissionMetrics{failures: make(map[Kind]int64)}
}

func (m *submissionMetrics) record(err error, latency time.Duration, sent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if sent {
		m.sent++
		m.totalLatency += latency
	}
	if err == nil {
		m.successes++
		return
	}
	m.failures[KindOf(err)]++
}

func (m *submissionMetrics) summary() *MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &MetricsSummary{
		TotalSubmissions:      m.total,
		SuccessfulSubmissions: m.successes,
		Failures:              make(map[string]int64, len(m.failures)),
	}
	for kind, count := range m.failures {
		summary.Failures[kind.String()] = count
	}
	if m.total > 0 {
		summary.SuccessRate = float64(m.successes) / float64(m.total)
	}
	if m.sent > 0 {
		summary.AverageLatencyMs = float64(m.totalLatency) / float64(time.Millisecond) / float64(m.sent)
	}
	return summary
}

// GetMetricsSummary aggregates the submissions handled so far.
func (c *PredictionController) GetMetricsSummary() *MetricsSummary {
	return c.metrics.summary()
}
