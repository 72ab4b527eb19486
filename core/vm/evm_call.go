package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallGasStipend is the gas credited to the callee of a value-transferring
// CALL on top of whatever gas the caller forwarded, per EIP-150/Yellow
// Paper Gcallstipend.
const CallGasStipend = GasCallStipend

// GasForCall applies the 63/64 rule (EIP-150): a call may forward at most
// available - available/64 of the gas remaining in the caller's frame,
// capped by what the caller actually requested. A non-zero value transfer
// adds the call stipend to the forwarded amount only; the stipend is not
// deducted from the caller's frame.
func GasForCall(available, requested uint64, isValueTransfer bool) (forwarded uint64, deductedFromCaller uint64) {
	capped := available - available/64
	if requested > capped {
		requested = capped
	}
	forwarded = requested
	deductedFromCaller = requested
	if isValueTransfer {
		forwarded += CallGasStipend
	}
	return forwarded, deductedFromCaller
}

// ReturnGasFromCall credits the caller's frame with gas left unspent by a
// completed child call, less any stipend that was never actually theirs
// to reclaim.
func ReturnGasFromCall(callerGas, leftOver, stipend uint64) uint64 {
	if leftOver > stipend {
		leftOver -= stipend
	} else {
		leftOver = 0
	}
	return callerGas + leftOver
}

func valueTransfer(v *big.Int) bool {
	return v != nil && v.Sign() != 0
}

// Call executes the contract at addr with the given input and value, as
// the CALL opcode would, in a fresh substate that commits on success and
// rolls back on revert or fatal error. If evm.Intercept is set and claims
// the call, the intercept's result is used verbatim instead of running
// the target's code.
func (evm *EVM) Call(caller common.Address, addr common.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	return evm.callInner(CallKindCall, caller, addr, addr, input, gas, value)
}

// CallCode executes addr's code in the caller's own storage context,
// carrying value as CALLCODE does.
func (evm *EVM) CallCode(caller common.Address, addr common.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	return evm.callInner(CallKindCallCode, caller, caller, addr, input, gas, value)
}

// DelegateCall executes addr's code in the caller's own storage context
// and caller identity, never transferring value.
func (evm *EVM) DelegateCall(caller common.Address, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	return evm.callInner(CallKindDelegateCall, caller, caller, addr, input, gas, nil)
}

// StaticCall executes addr's code with state mutation forbidden for the
// duration of the frame.
func (evm *EVM) StaticCall(caller common.Address, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	return evm.callInner(CallKindStaticCall, caller, addr, addr, input, gas, nil)
}

// callInner is the single faithful implementation behind all four call
// opcodes: depth check, precompile dispatch, value transfer, readOnly
// propagation, substate snapshot/revert, and intercept delegation.
func (evm *EVM) callInner(kind CallKind, caller, storageAddr, codeAddr common.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > evm.Config.MaxCallDepth {
		return nil, gas, ErrDepth
	}

	isStatic := kind == CallKindStaticCall
	if (isStatic || (kind == CallKindCall && evm.readOnly)) && valueTransfer(value) {
		return nil, gas, ErrWriteProtection
	}
	if kind != CallKindDelegateCall && valueTransfer(value) && !evm.Context.CanTransfer(evm.StateDB, caller, value) {
		return nil, gas, ErrInsufficientBalance
	}

	if evm.interceptBypass {
		evm.interceptBypass = false
	} else if evm.Intercept != nil {
		if ret, leftOverGas, handled, ierr := evm.Intercept(caller, codeAddr, input, gas, value, kind); handled {
			return ret, leftOverGas, ierr
		}
	}

	if precompile, ok := evm.precompiles[codeAddr]; ok {
		snapshot := evm.StateDB.Snapshot()
		if kind == CallKindCall && valueTransfer(value) {
			evm.Context.Transfer(evm.StateDB, caller, codeAddr, value)
		}
		ret, leftOverGas, err = evm.runPrecompile(precompile, caller, input, gas, value, isStatic)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
		}
		return ret, leftOverGas, err
	}

	snapshot := evm.StateDB.Snapshot()

	if kind == CallKindCall {
		if !evm.StateDB.Exist(storageAddr) {
			if value == nil || value.Sign() == 0 {
				// EIP-158: calling an empty account with zero value is a no-op.
				return nil, gas, nil
			}
			evm.StateDB.CreateAccount(storageAddr)
		}
		if valueTransfer(value) {
			evm.Context.Transfer(evm.StateDB, caller, storageAddr, value)
		}
	}

	code := evm.StateDB.GetCode(codeAddr)
	if len(code) == 0 {
		return nil, gas, nil
	}

	contract := NewContract(caller, storageAddr, bigToUint256(value), gas)
	contract.SetCallCode(evm.StateDB.GetCodeHash(codeAddr), code)

	wasReadOnly := evm.readOnly
	if isStatic {
		evm.readOnly = true
	}

	evm.depth++
	interp := NewInterpreter(evm)
	ret, err = interp.Run(contract, input, evm.readOnly)
	evm.depth--

	evm.readOnly = wasReadOnly

	leftOverGas = contract.Gas
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
	}
	return ret, leftOverGas, err
}

// runPrecompile dispatches to a native contract. Precompiles never run
// interpreted code, so depth/readOnly rules still apply; the only
// substate change is the balance transfer callInner makes before this
// runs and reverts if it fails.
func (evm *EVM) runPrecompile(p PrecompiledContract, caller common.Address, input []byte, gas uint64, value *big.Int, isStatic bool) ([]byte, uint64, error) {
	if !isStatic && valueTransfer(value) {
		if !evm.Context.CanTransfer(evm.StateDB, caller, value) {
			return nil, gas, ErrInsufficientBalance
		}
	}
	requiredGas := p.RequiredGas(input)
	if gas < requiredGas {
		return nil, gas, ErrOutOfGas
	}
	ret, err := p.Run(input)
	if err != nil {
		return nil, gas - requiredGas, err
	}
	return ret, gas - requiredGas, nil
}

// bigToUint256 converts a wei amount to a stack word, treating nil as zero.
func bigToUint256(v *big.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	u, _ := uint256.FromBig(v)
	return u
}
