package stream

// Record is one datastream entry.
type Record struct {
	ID      string
	At      string
	Min     float64
	Max     float64
	Current float64
}

// Handler receives records in document order. It is called synchronously
// from Parse and must not start another Parse on the same Parser.
type Handler interface {
	HandleRecord(Record)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Record)

func (f HandlerFunc) HandleRecord(r Record) {
	f(r)
}
