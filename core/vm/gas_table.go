package vm

import (
	"math"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// memSizeFromOffsetSize returns the byte length the [off, off+size) region
// requires memory to be resized to. The second return is true if the
// region overflows uint64 and execution must fail with out-of-gas.
func memSizeFromOffsetSize(off, size *uint256.Int) (uint64, bool) {
	if size.IsZero() {
		return 0, false
	}
	if off.BitLen() > 64 || size.BitLen() > 64 {
		return 0, true
	}
	sum, overflow := uint256.NewInt(0), false
	sum.Add(off, size)
	if sum.BitLen() > 64 {
		return 0, true
	}
	return sum.Uint64(), overflow
}

// pureMemoryGas charges only the memory expansion cost, used by opcodes
// whose gas is otherwise constant (MLOAD, MSTORE, MSTORE8, RETURN, REVERT).
func pureMemoryGas(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	return MemoryExpansionGas(uint64(scope.Memory.Len()), memorySize), nil
}

var (
	thirtyTwo = uint256.NewInt(32)
	one       = uint256.NewInt(1)
)

func memoryMload(stack *Stack) (uint64, bool) {
	off := stack.Back(0)
	return memSizeFromOffsetSize(off, thirtyTwo)
}

func memoryMstore(stack *Stack) (uint64, bool) {
	off := stack.Back(0)
	return memSizeFromOffsetSize(off, thirtyTwo)
}

func memoryMstore8(stack *Stack) (uint64, bool) {
	off := stack.Back(0)
	return memSizeFromOffsetSize(off, one)
}

func memoryKeccak256(stack *Stack) (uint64, bool) {
	return memSizeFromOffsetSize(stack.Back(0), stack.Back(1))
}

func memoryCallDataCopy(stack *Stack) (uint64, bool) {
	return memSizeFromOffsetSize(stack.Back(0), stack.Back(2))
}

func memoryCodeCopy(stack *Stack) (uint64, bool) {
	return memSizeFromOffsetSize(stack.Back(0), stack.Back(2))
}

func memoryExtCodeCopy(stack *Stack) (uint64, bool) {
	return memSizeFromOffsetSize(stack.Back(1), stack.Back(3))
}

func memoryReturnDataCopy(stack *Stack) (uint64, bool) {
	return memSizeFromOffsetSize(stack.Back(0), stack.Back(2))
}

func memoryReturn(stack *Stack) (uint64, bool) {
	return memSizeFromOffsetSize(stack.Back(0), stack.Back(1))
}

func memoryLog(stack *Stack) (uint64, bool) {
	return memSizeFromOffsetSize(stack.Back(0), stack.Back(1))
}

func memoryCreate(stack *Stack) (uint64, bool) {
	return memSizeFromOffsetSize(stack.Back(1), stack.Back(2))
}

func memoryCall(stack *Stack) (uint64, bool) {
	in, ok1 := memSizeFromOffsetSize(stack.Back(3), stack.Back(4))
	out, ok2 := memSizeFromOffsetSize(stack.Back(5), stack.Back(6))
	if ok1 {
		return 0, true
	}
	if ok2 {
		return 0, true
	}
	if in > out {
		return in, false
	}
	return out, false
}

func memoryDelegateStaticCall(stack *Stack) (uint64, bool) {
	in, ok1 := memSizeFromOffsetSize(stack.Back(2), stack.Back(3))
	out, ok2 := memSizeFromOffsetSize(stack.Back(4), stack.Back(5))
	if ok1 || ok2 {
		return 0, true
	}
	if in > out {
		return in, false
	}
	return out, false
}

func gasMload(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	return pureMemoryGas(in, scope, memorySize)
}

func gasMstore(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	return pureMemoryGas(in, scope, memorySize)
}

func gasMstore8(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	return pureMemoryGas(in, scope, memorySize)
}

// gasExp charges 50 gas per byte of the exponent (EIP-160).
func gasExp(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	exponent := scope.Stack.Back(1)
	byteLen := (exponent.BitLen() + 7) / 8
	return uint64(byteLen) * 50, nil
}

func gasKeccak256(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	size := scope.Stack.Back(1)
	words := toWordSize(size.Uint64())
	memGas, err := pureMemoryGas(in, scope, memorySize)
	if err != nil {
		return 0, err
	}
	return memGas + words*GasKeccak256Word, nil
}

func gasCopy(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	size := scope.Stack.Back(2)
	words := toWordSize(size.Uint64())
	memGas, err := pureMemoryGas(in, scope, memorySize)
	if err != nil {
		return 0, err
	}
	return memGas + words*GasCopy, nil
}

func gasExtCodeCopy(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	size := scope.Stack.Back(3)
	words := toWordSize(size.Uint64())
	memGas, err := pureMemoryGas(in, scope, memorySize)
	if err != nil {
		return 0, err
	}
	addr := common.Address(scope.Stack.Back(0).Bytes20())
	access := in.evm.accessAddress(addr)
	return memGas + words*GasCopy + access, nil
}

// gasSstore charges EIP-2929 cold/warm access plus the set/reset tiers.
// Gas refunds for clearing storage to zero are not modeled; the spec
// treats the opcode interpreter as out of scope beyond this wrapper.
func gasSstore(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	if in.readOnly {
		return 0, ErrWriteProtection
	}
	loc := scope.Stack.Back(0)
	newVal := scope.Stack.Back(1)
	slot := common.Hash(loc.Bytes32())
	addr := scope.Contract.Address

	access := in.evm.accessSlot(addr, slot)

	current := in.evm.StateDB.GetState(addr, slot)
	newHash := common.Hash(newVal.Bytes32())
	if current == newHash {
		return access + GasSloadWarm, nil
	}
	if current == (common.Hash{}) {
		return access + GasSstoreSet, nil
	}
	return access + GasSstoreReset, nil
}

func makeGasLog(n int) dynamicGasFunc {
	return func(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
		size := scope.Stack.Back(1)
		memGas, err := pureMemoryGas(in, scope, memorySize)
		if err != nil {
			return 0, err
		}
		dataGas := logSafeMul(size.Uint64(), GasLogData)
		return memGas + uint64(n)*GasLogTopic + dataGas, nil
	}
}

// logSafeMul returns a*b, saturating at math.MaxUint64 instead of
// wrapping on overflow.
func logSafeMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// gasCreate charges the EIP-3860 init-code word cost on top of the flat
// GasCreate constant already applied as constantGas.
func gasCreate(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	size := scope.Stack.Back(2)
	memGas, err := pureMemoryGas(in, scope, memorySize)
	if err != nil {
		return 0, err
	}
	words := toWordSize(size.Uint64())
	return memGas + words*2, nil
}

// gasCreate2 additionally charges one word of hashing gas per 32-byte
// chunk of init code, since CREATE2 hashes the init code to derive its
// address.
func gasCreate2(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
	size := scope.Stack.Back(2)
	memGas, err := pureMemoryGas(in, scope, memorySize)
	if err != nil {
		return 0, err
	}
	words := toWordSize(size.Uint64())
	return memGas + words*(2+GasKeccak256Word), nil
}

// makeGasCall builds the dynamic gas function for a CALL-family opcode.
// hasValue is true for CALL/CALLCODE, which carry a value argument at
// stack position 2; DELEGATECALL/STATICCALL never transfer value.
func makeGasCall(hasValue, chargeNewAccount bool) dynamicGasFunc {
	return func(in *Interpreter, scope *ScopeContext, memorySize uint64) (uint64, error) {
		memGas, err := pureMemoryGas(in, scope, memorySize)
		if err != nil {
			return 0, err
		}
		addr := common.Address(scope.Stack.Back(1).Bytes20())
		access := in.evm.accessAddress(addr)

		var transferGas uint64
		if hasValue {
			value := scope.Stack.Back(2)
			if !value.IsZero() {
				transferGas += GasCallValueTransfer
				if chargeNewAccount && in.evm.StateDB.Empty(addr) {
					transferGas += GasCallNewAccount
				}
			}
		}
		return memGas + access + transferGas, nil
	}
}
