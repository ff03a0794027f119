package formatter

import (
	"github.com/jacoelho/feedpoll/internal/results"
	"github.com/jacoelho/feedpoll/internal/stream"
)

// Record output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Formatter defines the interface for different output formats.
// Implementations are responsible for determining the output device (stdout, file, etc.).
type Formatter interface {
	// Format automatically determines whether to format as single or aggregated results
	// based on the number of summaries provided. The formatter decides where to output.
	Format(summaries ...*results.Summary) error
}

// RecordPrinter writes parsed records as they are delivered.
type RecordPrinter interface {
	// Handler returns a record handler labelled with target. Each call
	// starts with no error, so one failed poll does not affect the next.
	Handler(target string) RecordHandler
}

// RecordHandler is a stream.Handler that remembers its first write error.
type RecordHandler interface {
	stream.Handler
	// Err returns the first write error, if any.
	Err() error
}
