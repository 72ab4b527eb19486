package cheats

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hexonaut/foundry/core/vm"
	"github.com/hexonaut/foundry/metrics"
)

// revertSelector is the Solidity Error(string) selector, used both to
// recognize a standard revert reason and to build the payload for a
// cheatcode-raised error.
var revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

// intercept is installed as the wrapped EVM's vm.EVM.Intercept hook. It
// runs ahead of the faithful call dispatch in core/vm: calls targeting
// the two reserved addresses are fully handled here; every other call is
// rewritten for prank/startPrank, run through the normal call core by
// dispatchCall, and claimed (handled is always true), after which
// expectRevert post-processes the result. Creates never pass through
// this hook.
func (e *Executor) intercept(caller, addr common.Address, input []byte, gas uint64, value *big.Int, kind vm.CallKind) (ret []byte, leftOverGas uint64, handled bool, err error) {
	if addr == CheatcodeAddress {
		ret, name, err := e.dispatcher.apply(input, caller)
		metrics.CheatcodeInvocations.WithLabelValues(name).Inc()
		if err != nil {
			e.log.Debug("cheatcode reverted", "cheatcode", name, "error", err)
		}
		return ret, gas, true, err
	}
	if addr == ConsoleAddress {
		ret, err := e.handleConsoleLog(input)
		return ret, gas, true, err
	}

	expected := e.takeExpectRevert()
	effectiveCaller := e.applyPrank(caller)

	ret, leftOverGas, err = e.dispatchCall(effectiveCaller, addr, input, gas, value, kind)

	if expected != nil {
		return e.resolveExpectRevert(expected, ret, leftOverGas, err)
	}
	return ret, leftOverGas, true, err
}

// dispatchCall re-enters the embedded EVM's own call family so that the
// faithful call/create core (depth checks, gas forwarding, substate
// snapshotting) still governs the call; only the caller identity may
// have been rewritten by a prank. BypassNextIntercept prevents this
// re-entry from hitting the Intercept hook a second time for the exact
// same call; the EVM's own sub-calls made while running the callee are
// unaffected and still interpose normally.
func (e *Executor) dispatchCall(caller, addr common.Address, input []byte, gas uint64, value *big.Int, kind vm.CallKind) ([]byte, uint64, error) {
	e.EVM.BypassNextIntercept()
	switch kind {
	case vm.CallKindCall:
		return e.EVM.Call(caller, addr, input, gas, value)
	case vm.CallKindCallCode:
		return e.EVM.CallCode(caller, addr, input, gas, value)
	case vm.CallKindDelegateCall:
		return e.EVM.DelegateCall(caller, addr, input, gas)
	case vm.CallKindStaticCall:
		return e.EVM.StaticCall(caller, addr, input, gas)
	default:
		return e.EVM.Call(caller, addr, input, gas, value)
	}
}

// applyPrank rewrites caller according to whichever prank is active at
// the current depth, startPrank taking effect first and the one-shot
// prank taking precedence over it for this single call, mirroring the
// order Forge itself applies them in.
func (e *Executor) applyPrank(caller common.Address) common.Address {
	effective := caller

	if e.prank.active {
		currDepth := e.currentDepth() + 1
		if currDepth == e.prank.depth && caller == e.prank.originalMsgSender {
			effective = e.prank.permanentCaller
		}
	}

	if e.nextMsgSender != nil {
		effective = *e.nextMsgSender
		e.nextMsgSender = nil
	}

	return effective
}

// takeExpectRevert consumes the pending expectRevert payload, if any, so
// it applies to exactly one subsequent call.
func (e *Executor) takeExpectRevert() []byte {
	if !e.expectRevert.active {
		return nil
	}
	expected := e.expectRevert.expected
	e.expectRevert.active = false
	e.expectRevert.expected = nil
	return expected
}

// resolveExpectRevert compares a completed call's outcome against the
// payload recorded by expectRevert. A matching revert becomes a
// synthetic success carrying dummyOutput; anything else becomes an
// error describing the mismatch, with the same message returned as an
// Error(string) revert payload.
func (e *Executor) resolveExpectRevert(expected, ret []byte, leftOverGas uint64, callErr error) ([]byte, uint64, bool, error) {
	if callErr != vm.ErrExecutionReverted {
		msg := "Expected revert call did not revert"
		return abiEncodeString(msg), leftOverGas, true, cheatError(msg)
	}

	data := ret
	if len(data) >= 4 && string(data[0:4]) == string(revertSelector) {
		decoded, derr := decodeRevertString(data[4:])
		if derr == nil {
			if string(decoded) == string(expected) {
				return dummyOutput, leftOverGas, true, nil
			}
			msg := "Error != expected error: '" + string(decoded) + "' != '" + string(expected) + "'"
			return abiEncodeString(msg), leftOverGas, true, cheatError(msg)
		}
	}

	if string(data) == string(expected) {
		return dummyOutput, leftOverGas, true, nil
	}
	msg := "Error data != expected error data"
	return abiEncodeString(msg), leftOverGas, true, cheatError(msg)
}

// cheatError returns an error carrying msg that unwraps to
// vm.ErrExecutionReverted, so callers can detect it with errors.Is. It
// builds no revert payload; abiEncodeString does that.
func cheatError(msg string) error {
	return &revertError{msg: msg}
}

type revertError struct{ msg string }

func (r *revertError) Error() string { return r.msg }
func (r *revertError) Unwrap() error { return vm.ErrExecutionReverted }

// decodeRevertString decodes the ABI-encoded string argument of a
// Solidity Error(string) revert payload (offset, length, data layout).
func decodeRevertString(data []byte) ([]byte, error) {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: stringType}}
	vals, err := args.Unpack(data)
	if err != nil {
		return nil, err
	}
	s, ok := vals[0].(string)
	if !ok {
		return nil, err
	}
	return []byte(s), nil
}
