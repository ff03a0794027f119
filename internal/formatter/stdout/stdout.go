package stdout

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jacoelho/feedpoll/internal/formatter"
	"github.com/jacoelho/feedpoll/internal/results"
)

const (
	heavyRule = "================================================================================"
	lightRule = "--------------------------------------------------------------------------------"
)

// Formatter implements stdout-based output formatting.
type Formatter struct {
	writer io.Writer
}

// New creates a new stdout formatter that outputs to stdout.
func New() formatter.Formatter {
	return &Formatter{
		writer: os.Stdout,
	}
}

// NewWithWriter creates a new stdout formatter with a custom writer.
func NewWithWriter(writer io.Writer) formatter.Formatter {
	return &Formatter{
		writer: writer,
	}
}

// Format prints a single cycle summary, or per-cycle lines followed by
// aggregated statistics when more than one summary is given.
func (f *Formatter) Format(summaries ...*results.Summary) error {
	switch len(summaries) {
	case 0:
		return nil
	case 1:
		return f.formatSingle(summaries[0])
	default:
		return f.formatAggregated(summaries)
	}
}

func status(r results.TargetResult) string {
	switch {
	case r.Error != nil:
		return fmt.Sprintf("Failed: %v", r.Error)
	case r.Skipped:
		return "Unchanged"
	default:
		return "Parsed"
	}
}

// formatSingle formats a single cycle summary.
func (f *Formatter) formatSingle(s *results.Summary) error {
	for _, r := range s.Results {
		_, err := fmt.Fprintf(f.writer, "%s: %s (%d record(s) in %d ms)\n",
			r.Target, status(r), r.Records, r.Duration.Milliseconds())
		if err != nil {
			return err
		}
	}

	lines := []struct {
		format string
		args   []any
	}{
		{"Cycle:             %s\n", []any{s.CycleID}},
		{"Polled targets:    %d\n", []any{s.Polled}},
		{"Parsed targets:    %d (%.1f%%)\n", []any{s.Parsed, s.ParsedPercentage()}},
		{"Unchanged targets: %d (%.1f%%)\n", []any{s.Skipped, s.SkippedPercentage()}},
		{"Failed targets:    %d (%.1f%%)\n", []any{s.Failed, s.FailurePercentage()}},
		{"Records:           %d (%.2f/s)\n", []any{s.Records, s.RecordsPerSecond()}},
		{"Duration:          %d ms\n", []any{s.TotalDuration.Milliseconds()}},
	}

	if _, err := fmt.Fprintln(f.writer, lightRule); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(f.writer, l.format, l.args...); err != nil {
			return err
		}
	}

	return nil
}

// formatAggregated formats results from multiple cycles.
func (f *Formatter) formatAggregated(summaries []*results.Summary) error {
	if err := f.printCycleSummary(summaries); err != nil {
		return err
	}

	return f.printAggregatedSummary(results.CalculateAggregatedStats(summaries))
}

func (f *Formatter) header(title string) error {
	_, err := fmt.Fprintf(f.writer, "%s\n%s\n%s\n", heavyRule, title, heavyRule)
	return err
}

// printCycleSummary prints one line per cycle.
func (f *Formatter) printCycleSummary(summaries []*results.Summary) error {
	if err := f.header("CYCLE RESULTS:"); err != nil {
		return err
	}

	for i, s := range summaries {
		state := "OK"
		if s.Failed > 0 {
			state = "FAILED"
		}

		_, err := fmt.Fprintf(f.writer, "Cycle %d: %s (%d parsed, %d unchanged, %d failed, %d records, %d ms)\n",
			i+1, state, s.Parsed, s.Skipped, s.Failed, s.Records, s.TotalDuration.Milliseconds())
		if err != nil {
			return err
		}
	}

	return nil
}

// printAggregatedSummary prints overall statistics and averages.
func (f *Formatter) printAggregatedSummary(stats results.AggregatedStats) error {
	if err := f.header("AGGREGATED RESULTS:"); err != nil {
		return err
	}

	cleanRate := float64(stats.CleanCycles) / float64(stats.CycleCount) * 100

	var recordsPerSecond float64
	if stats.TotalDuration > 0 {
		recordsPerSecond = float64(stats.TotalRecords) / stats.TotalDuration.Seconds()
	}

	avgRecords := float64(stats.TotalRecords) / float64(stats.CycleCount)
	avgDuration := stats.TotalDuration / time.Duration(stats.CycleCount)

	lines := []struct {
		format string
		args   []any
	}{
		{"Total cycles:        %d\n", []any{stats.CycleCount}},
		{"Clean cycles:        %d (%.1f%%)\n", []any{stats.CleanCycles, cleanRate}},
		{"Total polls:         %d\n", []any{stats.TotalPolled}},
		{"Total parsed:        %d\n", []any{stats.TotalParsed}},
		{"Total unchanged:     %d\n", []any{stats.TotalSkipped}},
		{"Total failed:        %d\n", []any{stats.TotalFailed}},
		{"Total records:       %d (%.2f/s)\n", []any{stats.TotalRecords, recordsPerSecond}},
		{"Total duration:      %d ms\n", []any{stats.TotalDuration.Milliseconds()}},
	}

	for _, l := range lines {
		if _, err := fmt.Fprintf(f.writer, l.format, l.args...); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(f.writer, lightRule); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f.writer, "Avg records per cycle: %.1f\n", avgRecords); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f.writer, "Avg duration per cycle: %d ms\n", avgDuration.Milliseconds())
	return err
}
