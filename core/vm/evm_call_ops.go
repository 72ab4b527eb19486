package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func opCall(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	requestedGas, addr, value, argsOffset, argsSize, retOffset, retSize :=
		stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()

	toAddr := common.Address(addr.Bytes20())
	args := scope.Memory.GetPtr(int64(argsOffset.Uint64()), int64(argsSize.Uint64()))

	isTransfer := !value.IsZero()
	forwarded, deducted := GasForCall(scope.Contract.Gas, requestedGas.Uint64(), isTransfer)
	if !scope.Contract.UseGas(deducted) {
		return nil, ErrOutOfGas
	}

	ret, returnGas, err := in.evm.Call(scope.Contract.Address, toAddr, args, forwarded, uint256ToBig(&value))
	scope.Contract.Gas += returnGas

	pushCallResult(stack, err)
	in.returnData = ret
	writeCallReturn(scope, retOffset.Uint64(), retSize.Uint64(), ret)
	return nil, nil
}

func opCallCode(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	requestedGas, addr, value, argsOffset, argsSize, retOffset, retSize :=
		stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()

	toAddr := common.Address(addr.Bytes20())
	args := scope.Memory.GetPtr(int64(argsOffset.Uint64()), int64(argsSize.Uint64()))

	isTransfer := !value.IsZero()
	forwarded, deducted := GasForCall(scope.Contract.Gas, requestedGas.Uint64(), isTransfer)
	if !scope.Contract.UseGas(deducted) {
		return nil, ErrOutOfGas
	}

	ret, returnGas, err := in.evm.CallCode(scope.Contract.Address, toAddr, args, forwarded, uint256ToBig(&value))
	scope.Contract.Gas += returnGas

	pushCallResult(stack, err)
	in.returnData = ret
	writeCallReturn(scope, retOffset.Uint64(), retSize.Uint64(), ret)
	return nil, nil
}

func opDelegateCall(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	requestedGas, addr, argsOffset, argsSize, retOffset, retSize :=
		stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()

	toAddr := common.Address(addr.Bytes20())
	args := scope.Memory.GetPtr(int64(argsOffset.Uint64()), int64(argsSize.Uint64()))

	forwarded, deducted := GasForCall(scope.Contract.Gas, requestedGas.Uint64(), false)
	if !scope.Contract.UseGas(deducted) {
		return nil, ErrOutOfGas
	}

	ret, returnGas, err := in.evm.DelegateCall(scope.Contract.CallerAddress, toAddr, args, forwarded)
	scope.Contract.Gas += returnGas

	pushCallResult(stack, err)
	in.returnData = ret
	writeCallReturn(scope, retOffset.Uint64(), retSize.Uint64(), ret)
	return nil, nil
}

func opStaticCall(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	requestedGas, addr, argsOffset, argsSize, retOffset, retSize :=
		stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()

	toAddr := common.Address(addr.Bytes20())
	args := scope.Memory.GetPtr(int64(argsOffset.Uint64()), int64(argsSize.Uint64()))

	forwarded, deducted := GasForCall(scope.Contract.Gas, requestedGas.Uint64(), false)
	if !scope.Contract.UseGas(deducted) {
		return nil, ErrOutOfGas
	}

	ret, returnGas, err := in.evm.StaticCall(scope.Contract.Address, toAddr, args, forwarded)
	scope.Contract.Gas += returnGas

	pushCallResult(stack, err)
	in.returnData = ret
	writeCallReturn(scope, retOffset.Uint64(), retSize.Uint64(), ret)
	return nil, nil
}

// pushCallResult pushes 1 for success, 0 for revert or any other error.
func pushCallResult(stack *Stack, err error) {
	if err != nil {
		stack.Push(new(uint256.Int))
	} else {
		stack.Push(uint256.NewInt(1))
	}
}

// writeCallReturn copies up to retSize bytes of ret into memory at
// retOffset, matching the CALL family's fixed-size output buffer
// semantics (ret may be longer or shorter than retSize).
func writeCallReturn(scope *ScopeContext, retOffset, retSize uint64, ret []byte) {
	if retSize == 0 {
		return
	}
	n := retSize
	if uint64(len(ret)) < n {
		n = uint64(len(ret))
	}
	scope.Memory.Set(retOffset, n, ret[:n])
}

func uint256ToBig(v *uint256.Int) *big.Int {
	return v.ToBig()
}
