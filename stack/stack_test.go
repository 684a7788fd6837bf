// stack_test.go - Simple test-cases for our stack
package stack

import (
	"testing"

	"github.com/calmh/patternrun/value"
)

// TestEmpty: Test that the Empty() function works as expected.
func TestEmpty(t *testing.T) {
	s := New()

	if !s.Empty() {
		t.Errorf("New stack is not empty!")
	}

	s.Push(value.NewNumber(33))

	if s.Empty() {
		t.Errorf("Despite storing a value the stack is still empty!")
	}
}

// TestEmptyPop: Test that pop'ing from an empty stack fails.
func TestEmptyPop(t *testing.T) {
	s := New()

	_, err := s.Pop()
	if err == nil {
		t.Errorf("Expected an error popping from an empty stack!")
	}
}

// TestPushPop: Test that we can store/retrieve as we expect.
func TestPushPop(t *testing.T) {
	s := New()

	s.Push(value.NewNumber(33))

	out, err := s.Pop()
	if err != nil {
		t.Errorf("We shouldn't get an error popping from our stack")
	}
	if out.ToInt() != 33 {
		t.Errorf("We retrieved a value from our stack, but it was wrong")
	}
}

// TestPeek: Test that Peek returns the top item without removing it.
func TestPeek(t *testing.T) {
	s := New()
	s.Push(value.NewNumber(1))
	s.Push(value.NewNumber(2))

	top, err := s.Peek()
	if err != nil {
		t.Errorf("unexpected error peeking: %v", err)
	}
	if top.ToInt() != 2 {
		t.Errorf("expected to peek 2, got %d", top.ToInt())
	}
	if s.Len() != 2 {
		t.Errorf("Peek should not remove items, len=%d", s.Len())
	}
}
