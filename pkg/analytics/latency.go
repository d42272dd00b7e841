package analytics

import "math"

// LatencyStats accumulates command latencies in milliseconds.
type LatencyStats struct {
	Count uint64  `json:"count"`
	MinMS float64 `json:"min_ms"`
	MaxMS float64 `json:"max_ms"`
	SumMS float64 `json:"sum_ms"`
}

// NewLatencyStats returns empty stats. MinMS starts at +Inf so the first
// sample always replaces it.
func NewLatencyStats() LatencyStats {
	return LatencyStats{MinMS: math.Inf(1)}
}

// Record adds one sample.
func (s *LatencyStats) Record(ms float64) {
	s.Count++
	s.SumMS += ms
	if ms < s.MinMS {
		s.MinMS = ms
	}
	if ms > s.MaxMS {
		s.MaxMS = ms
	}
}

// AvgMS returns the mean latency, or 0 when nothing was recorded.
func (s LatencyStats) AvgMS() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.SumMS / float64(s.Count)
}
