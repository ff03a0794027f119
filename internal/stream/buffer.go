package stream

// Buffer is fixed-capacity text storage. One slot of the capacity is
// reserved for a terminator, so it holds at most capacity-1 payload bytes.
// Writes past that are dropped.
type Buffer struct {
	data []byte
}

// NewBuffer allocates a buffer of the given capacity (minimum 1).
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Append adds c and reports whether it fit.
func (b *Buffer) Append(c byte) bool {
	if len(b.data) >= cap(b.data)-1 {
		return false
	}
	b.data = append(b.data, c)
	return true
}

// Set replaces the contents with s, truncated to fit.
func (b *Buffer) Set(s string) {
	b.data = b.data[:0]
	if n := cap(b.data) - 1; len(s) > n {
		s = s[:n]
	}
	b.data = append(b.data, s...)
}

// CopyFrom replaces the contents with src's, truncated to fit.
func (b *Buffer) CopyFrom(src *Buffer) {
	b.data = b.data[:0]
	n := min(len(src.data), cap(b.data)-1)
	b.data = append(b.data, src.data[:n]...)
}

func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

// Bytes aliases the buffer storage; it is only valid until the next write.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) String() string {
	return string(b.data)
}

// EqualFold reports whether the contents equal s under ASCII case folding.
func (b *Buffer) EqualFold(s string) bool {
	if len(b.data) != len(s) {
		return false
	}
	for i := range len(s) {
		if lower(b.data[i]) != lower(s[i]) {
			return false
		}
	}
	return true
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
