package degrade

import (
	"log/slog"
	"sync"
)

// Stats accumulates per-batch enrichment outcomes. Safe for concurrent
// use by the worker pool.
type Stats struct {
	mu       sync.Mutex
	total    int
	degraded int
	byStage  map[string]int
}

func NewStats() *Stats {
	return &Stats{byStage: make(map[string]int)}
}

// RecordArticle tallies one finished article and the stages that
// degraded for it.
func (s *Stats) RecordArticle(degradedStages []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if len(degradedStages) > 0 {
		s.degraded++
	}
	for _, stage := range degradedStages {
		s.byStage[stage]++
	}
}

func (s *Stats) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Stats) Degraded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Stats) FullyEnriched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total - s.degraded
}

// StageCounts returns a copy of the per-stage degradation tallies.
func (s *Stats) StageCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.byStage))
	for stage, n := range s.byStage {
		counts[stage] = n
	}
	return counts
}

// LogSummary emits one line describing the batch outcome.
func (s *Stats) LogSummary(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger.Info("enrichment batch finished",
		"total", s.total,
		"fully_enriched", s.total-s.degraded,
		"degraded", s.degraded,
		"degraded_by_stage", s.byStage)
}
