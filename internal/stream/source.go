package stream

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrTimeout is returned by a ByteSource when no byte arrives in time.
var ErrTimeout = errors.New("read timed out")

const chunkSize = 512

// ByteSource yields one byte at a time, waiting at most timeout for it.
// Implementations return ErrTimeout when the wait expires and io.EOF at the
// end of the stream.
type ByteSource interface {
	ReadByte(timeout time.Duration) (byte, error)
}

type fill struct {
	n   int
	err error
}

// ReaderSource adapts an io.Reader into a ByteSource.
//
// A single goroutine performs the reads into a fixed chunk buffer. A read
// that outlives its timeout stays in flight and its bytes are returned by a
// later ReadByte call. Call Close when done; the goroutine exits once the
// underlying Read returns, so close the reader itself first if it may block.
type ReaderSource struct {
	r   io.Reader
	buf []byte
	pos int
	n   int

	requests chan struct{}
	fills    chan fill
	pending  bool
	closed   bool
	err      error // returned once buf is drained

	closeOnce sync.Once
}

// NewReaderSource starts the read goroutine for r.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		r:        r,
		buf:      make([]byte, chunkSize),
		requests: make(chan struct{}),
		fills:    make(chan fill, 1),
	}
	go s.loop()
	return s
}

func (s *ReaderSource) loop() {
	for range s.requests {
		n, err := s.r.Read(s.buf)
		s.fills <- fill{n: n, err: err}
	}
}

// ReadByte returns the next byte, ErrTimeout, or the reader's terminal error.
func (s *ReaderSource) ReadByte(timeout time.Duration) (byte, error) {
	if s.pos < s.n {
		c := s.buf[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return 0, s.err
	}
	if s.closed {
		return 0, io.ErrClosedPipe
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if !s.pending {
			s.requests <- struct{}{}
			s.pending = true
		}

		select {
		case f := <-s.fills:
			s.pending = false
			s.pos, s.n = 0, f.n
			if f.err != nil {
				s.err = f.err
			}
			if f.n > 0 {
				c := s.buf[0]
				s.pos = 1
				return c, nil
			}
			if s.err != nil {
				return 0, s.err
			}
		case <-timer.C:
			return 0, ErrTimeout
		}
	}
}

// Close stops the read goroutine. It is safe to call more than once.
func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true
		close(s.requests)
	})
	return nil
}
