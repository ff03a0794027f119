package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/jacoelho/feedpoll/internal/formatter"
	"github.com/jacoelho/feedpoll/internal/stream"
)

// RecordPrinter writes one line per record, either as
// "<id> <at> min=<v> cur=<v> max=<v>" or as a JSON object.
type RecordPrinter struct {
	writer io.Writer
	json   *json.Encoder
}

// NewRecordPrinter returns a printer for format; anything other than
// formatter.FormatJSON prints text.
func NewRecordPrinter(w io.Writer, format string) formatter.RecordPrinter {
	p := &RecordPrinter{writer: w}
	if format == formatter.FormatJSON {
		p.json = json.NewEncoder(w)
	}
	return p
}

// number encodes NaN and infinities as null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

type jsonRecord struct {
	Target  string `json:"target"`
	ID      string `json:"id"`
	At      string `json:"at,omitempty"`
	Min     number `json:"min_value"`
	Current number `json:"current_value"`
	Max     number `json:"max_value"`
}

// Handler returns a handler printing records for target.
func (p *RecordPrinter) Handler(target string) formatter.RecordHandler {
	return &recordHandler{printer: p, target: target}
}

type recordHandler struct {
	printer *RecordPrinter
	target  string
	err     error
}

func (h *recordHandler) HandleRecord(r stream.Record) {
	if h.err != nil {
		return
	}

	p := h.printer
	if p.json != nil {
		h.err = p.json.Encode(jsonRecord{
			Target:  h.target,
			ID:      r.ID,
			At:      r.At,
			Min:     number(r.Min),
			Current: number(r.Current),
			Max:     number(r.Max),
		})
		return
	}

	_, h.err = fmt.Fprintf(p.writer, "%s %s min=%g cur=%g max=%g\n", r.ID, r.At, r.Min, r.Current, r.Max)
}

func (h *recordHandler) Err() error {
	return h.err
}
