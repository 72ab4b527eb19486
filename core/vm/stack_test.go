package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestStackPushPop(t *testing.T) {
	s := NewStack()
	defer ReturnStack(s)

	s.Push(uint256.NewInt(1))
	s.Push(uint256.NewInt(2))
	s.Push(uint256.NewInt(3))

	if got := s.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	top := s.Pop()
	if top.Uint64() != 3 {
		t.Fatalf("Pop() = %d, want 3", top.Uint64())
	}
	if s.Len() != 2 {
		t.Fatalf("Len() after Pop = %d, want 2", s.Len())
	}
}

func TestStackSwapDup(t *testing.T) {
	s := NewStack()
	defer ReturnStack(s)

	s.Push(uint256.NewInt(1))
	s.Push(uint256.NewInt(2))

	s.swap(1)
	if s.Back(0).Uint64() != 1 || s.Back(1).Uint64() != 2 {
		t.Fatalf("swap(1) did not exchange top two elements")
	}

	s.dup(1)
	if s.Len() != 3 {
		t.Fatalf("Len() after dup = %d, want 3", s.Len())
	}
	if s.Back(0).Uint64() != s.Back(1).Uint64() {
		t.Fatalf("dup(1) did not duplicate the top element")
	}
}

func TestStackUnderflowUsesOperationBounds(t *testing.T) {
	s := NewStack()
	defer ReturnStack(s)

	if s.Len() != 0 {
		t.Fatalf("new stack Len() = %d, want 0", s.Len())
	}
	if add := NewDefaultJumpTable()[ADD]; s.Len() >= add.minStack {
		t.Fatalf("empty stack Len() = %d not below ADD minStack %d", s.Len(), add.minStack)
	}
}
