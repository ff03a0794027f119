package stream

import (
	"io"
	"time"
)

// scriptSource serves data and then ends with err (io.EOF when nil).
type scriptSource struct {
	data []byte
	pos  int
	err  error
}

func newScript(data string) *scriptSource {
	return &scriptSource{data: []byte(data)}
}

func (s *scriptSource) ReadByte(time.Duration) (byte, error) {
	if s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return 0, s.err
	}
	return 0, io.EOF
}

func (s *scriptSource) rest() string {
	return string(s.data[s.pos:])
}

// recorder collects every record it is handed.
type recorder struct {
	records []Record
}

func (r *recorder) HandleRecord(rec Record) {
	r.records = append(r.records, rec)
}
