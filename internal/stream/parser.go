package stream

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jacoelho/feedpoll/internal/stack"
)

// RecordsKey names the array that holds records in a whole-feed document.
const RecordsKey = "datastreams"

const (
	DefaultReadTimeout = 5 * time.Second
	DefaultMaxDepth    = 64
)

// Buffer capacities, terminator slot included.
const (
	NameCapacity  = 32
	ValueCapacity = 32
	IDCapacity    = 32
	AtCapacity    = 28
)

var (
	// ErrIncomplete wraps every read failure: the stream ended or stalled
	// before the document was complete. Records already delivered stay
	// delivered.
	ErrIncomplete = errors.New("stream ended or timed out before the document was complete")

	ErrTooDeep = errors.New("document nesting exceeds limit")
)

// endOfDocument is the root frame terminator. It matches no byte, so the
// root level only ends through a closed top-level object.
const endOfDocument = -1

type Options struct {
	// RootIsRecord reports the top-level object itself as the only record,
	// as returned for a single datastream.
	RootIsRecord bool
	ReadTimeout  time.Duration
	MaxDepth     int
}

type frame struct {
	depth       int
	terminator  int
	readingName bool
}

// Parser extracts records from feed documents. Its buffers are allocated
// once and reused by every Parse call; a Parser must not be used by more
// than one goroutine at a time.
type Parser struct {
	opts   Options
	frames *stack.Stack[frame]

	name  *Buffer
	value *Buffer

	// recordDepth is the depth of the records array, 0 until seen.
	recordDepth int

	id      *Buffer
	at      *Buffer
	min     float64
	max     float64
	current float64
}

func NewParser(opts Options) *Parser {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	return &Parser{
		opts:   opts,
		frames: stack.New[frame](opts.MaxDepth + 1),
		name:   NewBuffer(NameCapacity),
		value:  NewBuffer(ValueCapacity),
		id:     NewBuffer(IDCapacity),
		at:     NewBuffer(AtCapacity),
	}
}

// Parse reads one document from src and calls h for every record in it.
// A nil h parses without reporting.
func (p *Parser) Parse(src ByteSource, h Handler) error {
	p.reset()

	err := p.walk(src, h)
	if err == nil || errors.Is(err, ErrTooDeep) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIncomplete, err)
}

func (p *Parser) reset() {
	p.frames.Reset()
	p.name.Reset()
	p.value.Reset()
	p.recordDepth = 0
	p.clearRecord()
}

func (p *Parser) walk(src ByteSource, h Handler) error {
	if err := p.push(0, endOfDocument); err != nil {
		return err
	}

	for {
		top := p.frames.PeekRef()

		c, err := p.next(src)
		if err != nil {
			return err
		}

		if int(c) == top.terminator {
			closed, _ := p.frames.Pop()
			parent := p.frames.PeekRef()
			if closed.terminator == '}' && p.closeObject(parent.depth, h) {
				return nil
			}
			continue
		}

		switch c {
		case '{':
			if err := p.push(top.depth+1, '}'); err != nil {
				return err
			}
		case '[':
			if p.recordDepth == 0 && p.name.EqualFold(RecordsKey) {
				p.recordDepth = top.depth + 1
			}
			if err := p.push(top.depth+1, ']'); err != nil {
				return err
			}
		case '"':
			if top.readingName {
				if err := decodeString(src, p.name, p.opts.ReadTimeout); err != nil {
					return err
				}
				continue
			}
			if err := decodeString(src, p.value, p.opts.ReadTimeout); err != nil {
				return err
			}
			p.assign()
		case ':':
			top.readingName = false
			p.value.Reset()
		case ',':
			top.readingName = true
			p.name.Reset()
		}
		// Numbers and true/false/null are skipped a byte at a time.
	}
}

func (p *Parser) push(depth, terminator int) error {
	err := p.frames.Push(frame{depth: depth, terminator: terminator, readingName: true})
	if err != nil {
		return fmt.Errorf("%w: %d levels: %w", ErrTooDeep, p.opts.MaxDepth, err)
	}
	return nil
}

// closeObject runs after an object opened at depth has closed and reports
// whether the document is finished.
func (p *Parser) closeObject(depth int, h Handler) bool {
	if depth == 0 && !p.opts.RootIsRecord {
		return true
	}

	if p.isRecordDepth(depth) {
		if h != nil {
			h.HandleRecord(Record{
				ID:      p.id.String(),
				At:      p.at.String(),
				Min:     p.min,
				Max:     p.max,
				Current: p.current,
			})
		}
		p.clearRecord()
	}

	return depth == 0
}

func (p *Parser) isRecordDepth(depth int) bool {
	if p.opts.RootIsRecord && depth == 0 {
		return true
	}
	return p.recordDepth != 0 && depth == p.recordDepth
}

// assign stores the value just decoded if the current name is a record field.
func (p *Parser) assign() {
	switch {
	case p.name.EqualFold("id"):
		p.id.CopyFrom(p.value)
	case p.name.EqualFold("at"):
		p.at.CopyFrom(p.value)
	case p.name.EqualFold("min_value"):
		p.min = parseNumber(p.value.Bytes())
	case p.name.EqualFold("max_value"):
		p.max = parseNumber(p.value.Bytes())
	case p.name.EqualFold("current_value"):
		p.current = parseNumber(p.value.Bytes())
	}
}

func (p *Parser) clearRecord() {
	p.id.Reset()
	p.at.Reset()
	p.min, p.max, p.current = 0, 0, 0
}

// next returns the next byte that is not whitespace.
func (p *Parser) next(src ByteSource) (byte, error) {
	for {
		c, err := src.ReadByte(p.opts.ReadTimeout)
		if err != nil {
			return 0, err
		}
		if !isWhitespace(c) {
			return c, nil
		}
	}
}

// parseNumber converts the longest numeric prefix of s, after leading
// whitespace, and returns 0 when there is none.
func parseNumber(s []byte) float64 {
	i := 0
	for i < len(s) && isWhitespace(s[i]) {
		i++
	}
	s = s[i:]

	if f, err := strconv.ParseFloat(string(s), 64); err == nil {
		return f
	}

	n := numericPrefix(s)
	if n == 0 {
		return 0
	}
	// Out of range prefixes still return the saturated value.
	f, _ := strconv.ParseFloat(string(s[:n]), 64)
	return f
}

// numericPrefix returns the length of the longest decimal float at the
// start of s, or 0.
func numericPrefix(s []byte) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}

	return i
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
