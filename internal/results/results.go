// Package results collects per-target and per-cycle poll outcomes.
package results

import (
	"time"
)

// TargetResult is the outcome of polling one target once.
type TargetResult struct {
	Target   string
	Records  int
	Skipped  bool   // change token unchanged; body not parsed
	Token    string // change token seen on the response, if any
	Duration time.Duration
	Error    error
}

type TargetResultBuilder struct {
	target   string
	records  int
	skipped  bool
	token    string
	duration time.Duration
	err      error
}

func NewTargetResultBuilder(target string) *TargetResultBuilder {
	return &TargetResultBuilder{
		target: target,
	}
}

func (b *TargetResultBuilder) WithRecords(count int) *TargetResultBuilder {
	b.records = count
	return b
}

func (b *TargetResultBuilder) WithSkipped(skipped bool) *TargetResultBuilder {
	b.skipped = skipped
	return b
}

func (b *TargetResultBuilder) WithToken(token string) *TargetResultBuilder {
	b.token = token
	return b
}

func (b *TargetResultBuilder) WithDuration(duration time.Duration) *TargetResultBuilder {
	b.duration = duration
	return b
}

func (b *TargetResultBuilder) WithError(err error) *TargetResultBuilder {
	b.err = err
	return b
}

func (b *TargetResultBuilder) Build() TargetResult {
	return TargetResult{
		Target:   b.target,
		Records:  b.records,
		Skipped:  b.skipped,
		Token:    b.token,
		Duration: b.duration,
		Error:    b.err,
	}
}

// Summary aggregates one cycle over all targets.
type Summary struct {
	CycleID       string
	Results       []TargetResult
	Polled        int
	Parsed        int
	Skipped       int
	Failed        int
	Records       int
	TotalDuration time.Duration
}

func NewSummary(cycleID string, expectedTargets int) *Summary {
	return &Summary{
		CycleID: cycleID,
		Results: make([]TargetResult, 0, expectedTargets),
	}
}

// Add records a target outcome. A failed target counts as failed even when
// some records were delivered before the failure.
func (s *Summary) Add(builder *TargetResultBuilder) {
	result := builder.Build()

	s.Results = append(s.Results, result)
	s.Polled++
	s.Records += result.Records

	switch {
	case result.Error != nil:
		s.Failed++
	case result.Skipped:
		s.Skipped++
	default:
		s.Parsed++
	}
}

func (s *Summary) SetTotalDuration(duration time.Duration) {
	s.TotalDuration = duration
}

func (s *Summary) RecordsPerSecond() float64 {
	if s.TotalDuration == 0 {
		return 0
	}
	return float64(s.Records) / s.TotalDuration.Seconds()
}

func (s *Summary) percentage(n int) float64 {
	if s.Polled == 0 {
		return 0
	}
	return (float64(n) / float64(s.Polled)) * 100
}

func (s *Summary) ParsedPercentage() float64  { return s.percentage(s.Parsed) }
func (s *Summary) SkippedPercentage() float64 { return s.percentage(s.Skipped) }
func (s *Summary) FailurePercentage() float64 { return s.percentage(s.Failed) }

type AggregatedStats struct {
	TotalPolled   int
	TotalParsed   int
	TotalSkipped  int
	TotalFailed   int
	TotalRecords  int
	TotalDuration time.Duration
	CleanCycles   int // cycles without a failed target
	CycleCount    int
}

func CalculateAggregatedStats(summaries []*Summary) AggregatedStats {
	var stats AggregatedStats
	stats.CycleCount = len(summaries)

	for _, s := range summaries {
		stats.TotalPolled += s.Polled
		stats.TotalParsed += s.Parsed
		stats.TotalSkipped += s.Skipped
		stats.TotalFailed += s.Failed
		stats.TotalRecords += s.Records
		stats.TotalDuration += s.TotalDuration

		if s.Failed == 0 {
			stats.CleanCycles++
		}
	}

	return stats
}
