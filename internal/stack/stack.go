// Package stack provides a bounded LIFO whose storage is allocated once.
package stack

import "errors"

// ErrOverflow is returned by Push when the stack is at its limit.
var ErrOverflow = errors.New("stack overflow")

// Stack holds at most Limit items. The backing array is allocated by New and
// reused across Reset calls, so steady-state use does not allocate.
type Stack[T any] struct {
	items []T
}

// New returns an empty stack that accepts up to limit items.
// A limit below one is treated as one.
func New[T any](limit int) *Stack[T] {
	if limit < 1 {
		limit = 1
	}
	return &Stack[T]{
		items: make([]T, 0, limit),
	}
}

// Push adds item on top, or returns ErrOverflow without modifying the stack.
func (s *Stack[T]) Push(item T) error {
	if len(s.items) == cap(s.items) {
		return ErrOverflow
	}
	s.items = append(s.items, item)
	return nil
}

func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}

	index := len(s.items) - 1
	item := s.items[index]
	s.items[index] = zero
	s.items = s.items[:index]
	return item, true
}

func (s *Stack[T]) Peek() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}

	return s.items[len(s.items)-1], true
}

// PeekRef allows modifying the top element in place.
func (s *Stack[T]) PeekRef() *T {
	if len(s.items) == 0 {
		return nil
	}

	return &s.items[len(s.items)-1]
}

// Reset empties the stack and keeps its storage.
func (s *Stack[T]) Reset() {
	clear(s.items)
	s.items = s.items[:0]
}

func (s *Stack[T]) IsEmpty() bool {
	return len(s.items) == 0
}

func (s *Stack[T]) Size() int {
	return len(s.items)
}

func (s *Stack[T]) Limit() int {
	return cap(s.items)
}
