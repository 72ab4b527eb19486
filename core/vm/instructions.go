package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ScopeContext bundles the per-frame mutable state an executionFunc needs:
// the stack, memory, and the contract being executed.
type ScopeContext struct {
	Memory   *Memory
	Stack    *Stack
	Contract *Contract
}

func opStop(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	return nil, nil
}

func opAdd(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.Add(&x, y)
	return nil, nil
}

func opMul(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.Mul(&x, y)
	return nil, nil
}

func opSub(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.Sub(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.SMod(&x, y)
	return nil, nil
}

func opAddmod(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y, z := scope.Stack.Pop(), scope.Stack.Pop(), scope.Stack.peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y, z := scope.Stack.Pop(), scope.Stack.Pop(), scope.Stack.peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

func opExp(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	base, exponent := scope.Stack.Pop(), scope.Stack.peek()
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	back, num := scope.Stack.Pop(), scope.Stack.peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

func opLt(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIszero(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.Pop(), scope.Stack.peek()
	y.Xor(&x, y)
	return nil, nil
}

func opNot(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	x.Not(x)
	return nil, nil
}

func opByte(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	th, val := scope.Stack.Pop(), scope.Stack.peek()
	val.Byte(&th)
	return nil, nil
}

func opShl(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.Pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opShr(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.Pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSar(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.Pop(), scope.Stack.peek()
	if shift.GtUint64(256) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil, nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil, nil
}

func opKeccak256(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.Pop(), scope.Stack.peek()
	data := scope.Memory.GetPtr(int64(offset.Uint64()), int64(size.Uint64()))
	hash := crypto.Keccak256(data)
	size.SetBytes(hash)
	return nil, nil
}

func opAddress(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(addressToUint256(scope.Contract.Address))
	return nil, nil
}

func opBalance(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := common.Address(slot.Bytes20())
	slot.Set(weiToUint256(in.evm.StateDB.GetBalance(addr)))
	return nil, nil
}

func opOrigin(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(addressToUint256(in.evm.TxContext.Origin))
	return nil, nil
}

func opCaller(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(addressToUint256(scope.Contract.CallerAddress))
	return nil, nil
}

func opCallValue(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	v := new(uint256.Int)
	if scope.Contract.Value != nil {
		v.Set(scope.Contract.Value)
	}
	scope.Stack.Push(v)
	return nil, nil
}

func opCallDataLoad(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		data := getData(scope.Contract.Input, offset, 32)
		x.SetBytes(data)
	} else {
		x.Clear()
	}
	return nil, nil
}

func opCallDataSize(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int).SetUint64(uint64(len(scope.Contract.Input))))
	return nil, nil
}

func opCallDataCopy(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, dataOffset, length := scope.Stack.Pop(), scope.Stack.Pop(), scope.Stack.Pop()
	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = 0xffffffffffffffff
	}
	data := getData(scope.Contract.Input, dataOffset64, length.Uint64())
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func opCodeSize(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int).SetUint64(uint64(len(scope.Contract.Code))))
	return nil, nil
}

func opCodeCopy(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, codeOffset, length := scope.Stack.Pop(), scope.Stack.Pop(), scope.Stack.Pop()
	codeOffset64, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOffset64 = 0xffffffffffffffff
	}
	data := getData(scope.Contract.Code, codeOffset64, length.Uint64())
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func opGasprice(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	v, _ := uint256.FromBig(in.evm.TxContext.GasPrice)
	scope.Stack.Push(v)
	return nil, nil
}

func opExtCodeSize(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := common.Address(slot.Bytes20())
	slot.SetUint64(uint64(in.evm.StateDB.GetCodeSize(addr)))
	return nil, nil
}

func opExtCodeCopy(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	a, memOffset, codeOffset, length := stack.Pop(), stack.Pop(), stack.Pop(), stack.Pop()
	addr := common.Address(a.Bytes20())
	codeOffset64, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOffset64 = 0xffffffffffffffff
	}
	code := in.evm.StateDB.GetCode(addr)
	data := getData(code, codeOffset64, length.Uint64())
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func opReturnDataSize(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int).SetUint64(uint64(len(in.returnData))))
	return nil, nil
}

func opReturnDataCopy(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, dataOffset, length := scope.Stack.Pop(), scope.Stack.Pop(), scope.Stack.Pop()
	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return nil, ErrReturnDataOutOfBounds
	}
	end := new(uint256.Int).Add(&dataOffset, &length)
	end64, overflow := end.Uint64WithOverflow()
	if overflow || uint64(len(in.returnData)) < end64 {
		return nil, ErrReturnDataOutOfBounds
	}
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), in.returnData[offset64:end64])
	return nil, nil
}

func opExtCodeHash(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := common.Address(slot.Bytes20())
	if in.evm.StateDB.Empty(addr) {
		slot.Clear()
		return nil, nil
	}
	slot.SetBytes(in.evm.StateDB.GetCodeHash(addr).Bytes())
	return nil, nil
}

func opBlockhash(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	num := scope.Stack.peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return nil, nil
	}
	upper := in.evm.BlockNumber().Uint64()
	var lower uint64
	if upper > 256 {
		lower = upper - 256
	}
	if num64 >= lower && num64 < upper {
		num.SetBytes(in.evm.Context.GetHash(num64).Bytes())
	} else {
		num.Clear()
	}
	return nil, nil
}

func opCoinbase(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(addressToUint256(in.evm.Context.Coinbase))
	return nil, nil
}

func opTimestamp(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	v, _ := uint256.FromBig(in.evm.BlockTimestamp())
	scope.Stack.Push(v)
	return nil, nil
}

func opNumber(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	v, _ := uint256.FromBig(in.evm.BlockNumber())
	scope.Stack.Push(v)
	return nil, nil
}

func opPrevrandao(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	v := new(uint256.Int)
	if in.evm.Context.Random != nil {
		v.SetBytes(in.evm.Context.Random.Bytes())
	}
	scope.Stack.Push(v)
	return nil, nil
}

func opGasLimit(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int).SetUint64(in.evm.Context.GasLimit))
	return nil, nil
}

func opChainID(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int).SetUint64(in.evm.chainID))
	return nil, nil
}

func opSelfBalance(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	balance := in.evm.StateDB.GetBalance(scope.Contract.Address)
	scope.Stack.Push(weiToUint256(balance))
	return nil, nil
}

func opBaseFee(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	v := new(uint256.Int)
	if bf := in.evm.BlockBaseFee(); bf != nil {
		v, _ = uint256.FromBig(bf)
	}
	scope.Stack.Push(v)
	return nil, nil
}

func opPop(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Pop()
	return nil, nil
}

func opMload(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	v := scope.Stack.peek()
	offset := v.Uint64()
	v.SetBytes(scope.Memory.GetPtr(int64(offset), 32))
	return nil, nil
}

func opMstore(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	mStart, val := scope.Stack.Pop(), scope.Stack.Pop()
	b := val.Bytes32()
	scope.Memory.Set32(mStart.Uint64(), &b)
	return nil, nil
}

func opMstore8(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	off, val := scope.Stack.Pop(), scope.Stack.Pop()
	scope.Memory.store[off.Uint64()] = byte(val.Uint64())
	return nil, nil
}

func opSload(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	loc := scope.Stack.peek()
	hash := common.Hash(loc.Bytes32())
	val := in.evm.StateDB.GetState(scope.Contract.Address, hash)
	loc.SetBytes(val.Bytes())
	return nil, nil
}

func opSstore(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	if in.readOnly {
		return nil, ErrWriteProtection
	}
	loc, val := scope.Stack.Pop(), scope.Stack.Pop()
	in.evm.StateDB.SetState(scope.Contract.Address, common.Hash(loc.Bytes32()), common.Hash(val.Bytes32()))
	return nil, nil
}

func opJump(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	pos := scope.Stack.Pop()
	if !scope.Contract.validJumpdest(&pos) {
		return nil, ErrInvalidJump
	}
	*pc = pos.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	pos, cond := scope.Stack.Pop(), scope.Stack.Pop()
	if !cond.IsZero() {
		if !scope.Contract.validJumpdest(&pos) {
			return nil, ErrInvalidJump
		}
		*pc = pos.Uint64()
	} else {
		*pc++
	}
	return nil, nil
}

func opPc(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int).SetUint64(*pc))
	return nil, nil
}

func opMsize(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int).SetUint64(uint64(scope.Memory.Len())))
	return nil, nil
}

func opGas(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int).SetUint64(scope.Contract.Gas))
	return nil, nil
}

func opJumpdest(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	return nil, nil
}

func opPush0(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Push(new(uint256.Int))
	return nil, nil
}

func makePush(size uint64) executionFunc {
	return func(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
		codeLen := uint64(len(scope.Contract.Code))
		start := *pc + 1
		if start > codeLen {
			start = codeLen
		}
		end := start + size
		if end > codeLen {
			end = codeLen
		}
		v := new(uint256.Int).SetBytes(scope.Contract.Code[start:end])
		scope.Stack.Push(v)
		*pc += size
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
		scope.Stack.dup(n)
		return nil, nil
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
		scope.Stack.swap(n)
		return nil, nil
	}
}

func makeLog(n int) executionFunc {
	return func(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
		if in.readOnly {
			return nil, ErrWriteProtection
		}
		mStart, mSize := scope.Stack.Pop(), scope.Stack.Pop()
		topics := make([]common.Hash, n)
		for i := 0; i < n; i++ {
			t := scope.Stack.Pop()
			topics[i] = common.Hash(t.Bytes32())
		}
		data := scope.Memory.GetPtr(int64(mStart.Uint64()), int64(mSize.Uint64()))
		in.evm.StateDB.AddLog(&Log{
			Address: scope.Contract.Address,
			Topics:  topics,
			Data:    common.CopyBytes(data),
		})
		return nil, nil
	}
}

func opInvalid(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	return nil, ErrInvalidOpCode
}

func opReturn(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.Pop(), scope.Stack.Pop()
	return scope.Memory.GetPtr(int64(offset.Uint64()), int64(size.Uint64())), nil
}

func opRevert(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.Pop(), scope.Stack.Pop()
	ret := scope.Memory.GetPtr(int64(offset.Uint64()), int64(size.Uint64()))
	return ret, ErrExecutionReverted
}

func opSelfdestruct(pc *uint64, in *Interpreter, scope *ScopeContext) ([]byte, error) {
	if in.readOnly {
		return nil, ErrWriteProtection
	}
	beneficiary := scope.Stack.Pop()
	balance := in.evm.StateDB.GetBalance(scope.Contract.Address)
	in.evm.StateDB.AddBalance(common.Address(beneficiary.Bytes20()), balance)
	in.evm.StateDB.SelfDestruct(scope.Contract.Address)
	return nil, nil
}

// addressToUint256 left-pads a 20-byte address into a stack word.
func addressToUint256(addr common.Address) *uint256.Int {
	return new(uint256.Int).SetBytes(addr.Bytes())
}

// weiToUint256 converts a big.Int wei amount to a stack word, treating nil
// as zero.
func weiToUint256(v *big.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	u, _ := uint256.FromBig(v)
	return u
}

// getData returns size bytes of src starting at offset, zero-padded past
// the end, mirroring the EVM's CALLDATACOPY/CODECOPY semantics.
func getData(src []byte, offset, size uint64) []byte {
	if offset > uint64(len(src)) {
		offset = uint64(len(src))
	}
	end := offset + size
	if end > uint64(len(src)) {
		end = uint64(len(src))
	}
	data := make([]byte, size)
	copy(data, src[offset:end])
	return data
}
