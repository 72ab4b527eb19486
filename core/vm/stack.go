package vm

import (
	"sync"

	"github.com/holiman/uint256"
)

const stackLimit = 1024

var stackPool = sync.Pool{
	New: func() interface{} {
		return &Stack{data: make([]uint256.Int, 0, 16)}
	},
}

// Stack is the EVM's 1024-slot word stack, backed by fixed-width 256-bit
// integers rather than big.Int so that arithmetic never allocates on the
// hot path.
type Stack struct {
	data []uint256.Int
}

// NewStack returns a stack drawn from a shared pool. Callers must return it
// with ReturnStack once execution completes.
func NewStack() *Stack {
	return stackPool.Get().(*Stack)
}

// ReturnStack resets and returns a stack to the pool.
func ReturnStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

func (s *Stack) Push(d *uint256.Int) {
	s.data = append(s.data, *d)
}

func (s *Stack) Pop() uint256.Int {
	last := len(s.data) - 1
	v := s.data[last]
	s.data = s.data[:last]
	return v
}

func (s *Stack) Len() int {
	return len(s.data)
}

func (s *Stack) swap(n int) {
	top := len(s.data) - 1
	s.data[top], s.data[top-n] = s.data[top-n], s.data[top]
}

func (s *Stack) dup(n int) {
	s.data = append(s.data, s.data[len(s.data)-n])
}

func (s *Stack) peek() *uint256.Int {
	return &s.data[len(s.data)-1]
}

// Back returns the n-th deep element without popping, 0-indexed from the top.
func (s *Stack) Back(n int) *uint256.Int {
	return &s.data[len(s.data)-n-1]
}

// Data returns the underlying slice, bottom-to-top.
func (s *Stack) Data() []uint256.Int {
	return s.data
}
