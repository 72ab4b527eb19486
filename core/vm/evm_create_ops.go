package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func opCreate(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	value, offset, size := stack.Pop(), stack.Pop(), stack.Pop()

	initCode := scope.Memory.GetPtr(int64(offset.Uint64()), int64(size.Uint64()))

	gas := scope.Contract.Gas
	gas -= gas / 64
	if !scope.Contract.UseGas(gas) {
		return nil, ErrOutOfGas
	}

	ret, addr, returnGas, err := in.evm.Create(scope.Contract.Address, common.CopyBytes(initCode), gas, uint256ToBig(&value))
	scope.Contract.Gas += returnGas

	pushCreateResult(stack, addr, err)
	in.returnData = ret
	return nil, nil
}

func opCreate2(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	value, offset, size, salt := stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()

	initCode := scope.Memory.GetPtr(int64(offset.Uint64()), int64(size.Uint64()))

	gas := scope.Contract.Gas
	gas -= gas / 64
	if !scope.Contract.UseGas(gas) {
		return nil, ErrOutOfGas
	}

	ret, addr, returnGas, err := in.evm.Create2(scope.Contract.Address, common.CopyBytes(initCode), gas, uint256ToBig(&value), &salt)
	scope.Contract.Gas += returnGas

	pushCreateResult(stack, addr, err)
	in.returnData = ret
	return nil, nil
}

// pushCreateResult pushes the new contract's address on success, or zero
// on any failure including a revert.
func pushCreateResult(stack *Stack, addr common.Address, err error) {
	if err != nil {
		stack.Push(new(uint256.Int))
		return
	}
	stack.Push(new(uint256.Int).SetBytes(addr.Bytes()))
}
