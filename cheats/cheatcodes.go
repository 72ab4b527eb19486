package cheats

import (
	"encoding/hex"
	"encoding/binary"
	"fmt"
	"math/big"
	"os/exec"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// cheatMethod pairs a decoded ABI method with the handler that executes
// it once its arguments have been unpacked.
type cheatMethod struct {
	method  abi.Method
	handler func(e *Executor, caller common.Address, args []interface{}) ([]interface{}, error)
}

// cheatcodeDispatcher resolves a cheatcode call's 4-byte selector to its
// handler and packs/unpacks arguments through go-ethereum's ABI package,
// the same mechanism medusa's own cheat code contract uses.
type cheatcodeDispatcher struct {
	executor *Executor
	methods  map[uint32]*cheatMethod
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func newCheatcodeDispatcher(e *Executor) *cheatcodeDispatcher {
	d := &cheatcodeDispatcher{executor: e, methods: make(map[uint32]*cheatMethod)}

	d.add("warp", []abi.Type{mustType("uint256")}, nil, handleWarp)
	d.add("roll", []abi.Type{mustType("uint256")}, nil, handleRoll)
	d.add("fee", []abi.Type{mustType("uint256")}, nil, handleFee)
	d.add("store", []abi.Type{mustType("address"), mustType("bytes32"), mustType("bytes32")}, nil, handleStore)
	d.add("load", []abi.Type{mustType("address"), mustType("bytes32")}, []abi.Type{mustType("bytes32")}, handleLoad)
	d.add("ffi", []abi.Type{mustType("string[]")}, []abi.Type{mustType("bytes")}, handleFfi)
	d.add("addr", []abi.Type{mustType("uint256")}, []abi.Type{mustType("address")}, handleAddr)
	d.add("sign", []abi.Type{mustType("uint256"), mustType("bytes32")}, []abi.Type{mustType("uint8"), mustType("bytes32"), mustType("bytes32")}, handleSign)
	d.add("prank", []abi.Type{mustType("address")}, nil, handlePrank)
	d.add("startPrank", []abi.Type{mustType("address")}, nil, handleStartPrank)
	d.add("stopPrank", nil, nil, handleStopPrank)
	d.add("expectRevert", []abi.Type{mustType("bytes")}, nil, handleExpectRevert)
	d.add("deal", []abi.Type{mustType("address"), mustType("uint256")}, nil, handleDeal)
	d.add("etch", []abi.Type{mustType("address"), mustType("bytes")}, nil, handleEtch)

	return d
}

func (d *cheatcodeDispatcher) add(name string, inputs, outputs []abi.Type, handler func(*Executor, common.Address, []interface{}) ([]interface{}, error)) {
	inArgs := make(abi.Arguments, len(inputs))
	for i, t := range inputs {
		inArgs[i] = abi.Argument{Type: t}
	}
	outArgs := make(abi.Arguments, len(outputs))
	for i, t := range outputs {
		outArgs[i] = abi.Argument{Type: t}
	}
	method := abi.NewMethod(name, name, abi.Function, "external", false, false, inArgs, outArgs)
	id := binary.LittleEndian.Uint32(method.ID)
	d.methods[id] = &cheatMethod{method: method, handler: handler}
}

// apply resolves input's 4-byte selector and runs the matching handler.
// A cheatcode that fails its own validation (bad key, no matching
// revert, etc.) returns an ABI-encoded Error(string) payload as ret
// together with an error wrapping vm.ErrExecutionReverted, exactly as a
// Solidity require(false, "...") would present to the caller.
func (d *cheatcodeDispatcher) apply(input []byte, caller common.Address) ([]byte, string, error) {
	if len(input) < 4 {
		msg := "cheatcode call data too short"
		return abiEncodeString(msg), "unknown", cheatError(msg)
	}
	id := binary.LittleEndian.Uint32(input[:4])
	m, ok := d.methods[id]
	if !ok {
		msg := fmt.Sprintf("unknown cheatcode selector 0x%x", input[:4])
		return abiEncodeString(msg), "unknown", cheatError(msg)
	}

	args, err := m.method.Inputs.Unpack(input[4:])
	if err != nil {
		return abiEncodeString(err.Error()), m.method.Name, cheatError(err.Error())
	}

	outs, err := m.handler(d.executor, caller, args)
	if err != nil {
		return abiEncodeString(err.Error()), m.method.Name, cheatError(err.Error())
	}
	if len(outs) == 0 {
		return nil, m.method.Name, nil
	}
	packed, err := m.method.Outputs.Pack(outs...)
	if err != nil {
		return abiEncodeString(err.Error()), m.method.Name, cheatError(err.Error())
	}
	return packed, m.method.Name, nil
}

// abiEncodeString builds an Error(string) revert payload: revertSelector
// followed by the ABI encoding of s.
func abiEncodeString(s string) []byte {
	stringType := mustType("string")
	args := abi.Arguments{{Type: stringType}}
	packed, err := args.Pack(s)
	if err != nil {
		return nil
	}
	return append(append([]byte{}, revertSelector...), packed...)
}

func handleWarp(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	e.EVM.BlockOverrides.Timestamp = args[0].(*big.Int)
	return nil, nil
}

func handleRoll(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	e.EVM.BlockOverrides.Number = args[0].(*big.Int)
	return nil, nil
}

func handleFee(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	e.EVM.BlockOverrides.BaseFee = args[0].(*big.Int)
	return nil, nil
}

func handleStore(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	addr := args[0].(common.Address)
	slot := common.Hash(args[1].([32]byte))
	val := common.Hash(args[2].([32]byte))
	e.EVM.StateDB.SetState(addr, slot, val)
	return nil, nil
}

func handleLoad(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	addr := args[0].(common.Address)
	slot := common.Hash(args[1].([32]byte))
	val := e.EVM.StateDB.GetState(addr, slot)
	return []interface{}{[32]byte(val)}, nil
}

// handleFfi runs an external command and returns its stdout, hex-decoded
// from byte index 2 onward. The literal index-2 slice is deliberate: it
// assumes a "0x" prefix without verifying or trimming whitespace, so a
// stdout value without that prefix, or with a trailing newline, fails to
// decode rather than being silently tolerated.
func handleFfi(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	if !e.ffiEnabled {
		return nil, fmt.Errorf("ffi disabled: run again with --ffi if you want to allow tests to call external scripts")
	}
	cmdArgs, ok := args[0].([]string)
	if !ok || len(cmdArgs) == 0 {
		return nil, fmt.Errorf("ffi: no command given")
	}
	e.log.Debug("ffi invocation", "cmd", cmdArgs)
	out, err := exec.Command(cmdArgs[0], cmdArgs[1:]...).Output()
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("ffi: stdout too short to contain a 0x-prefixed hex string")
	}
	decoded, err := hex.DecodeString(string(out[2:]))
	if err != nil {
		return nil, err
	}
	return []interface{}{decoded}, nil
}

func handleAddr(_ *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	sk := args[0].(*big.Int)
	if sk.Sign() == 0 {
		return nil, fmt.Errorf("Bad Cheat Code. Private Key cannot be 0.")
	}
	priv, err := privateKeyFromBig(sk)
	if err != nil {
		return nil, err
	}
	return []interface{}{crypto.PubkeyToAddress(priv.PublicKey)}, nil
}

// handleSign signs digest with the given private key using the legacy
// (non-EIP-155) recovery id convention: v = 27 + sig[64], then verifies
// the signature actually recovers back to the signer's own address
// before returning it.
func handleSign(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	sk := args[0].(*big.Int)
	digest := args[1].([32]byte)
	if sk.Sign() == 0 {
		return nil, fmt.Errorf("Bad Cheat Code. Private Key cannot be 0.")
	}
	priv, err := privateKeyFromBig(sk)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest[:], priv)
	if err != nil {
		return nil, err
	}

	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return nil, err
	}
	if crypto.PubkeyToAddress(*pub) != crypto.PubkeyToAddress(priv.PublicKey) {
		return nil, fmt.Errorf("ecrecover failed to recover signer from sign cheatcode")
	}

	var r, s [32]byte
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	v := sig[64] + 27
	return []interface{}{v, r, s}, nil
}

func privateKeyFromBig(sk *big.Int) (*ecdsaPrivateKey, error) {
	return toECDSA(sk)
}

func handlePrank(e *Executor, caller common.Address, args []interface{}) ([]interface{}, error) {
	newCaller := args[0].(common.Address)
	if e.prank.active {
		startDepth := e.currentDepth() + 1
		if startDepth == e.prank.depth && caller == e.prank.originalMsgSender {
			return nil, fmt.Errorf("You have an active `startPrank` at this frame depth already. Use either `prank` or `startPrank`, not both")
		}
	}
	e.nextMsgSender = &newCaller
	return nil, nil
}

func handleStartPrank(e *Executor, caller common.Address, args []interface{}) ([]interface{}, error) {
	newCaller := args[0].(common.Address)
	if e.nextMsgSender != nil {
		return nil, fmt.Errorf("You have an active `prank` call already. Use either `prank` or `startPrank`, not both")
	}
	e.prank = startPrank{
		active:            true,
		originalMsgSender: caller,
		permanentCaller:   newCaller,
		depth:             e.currentDepth() + 1,
	}
	return nil, nil
}

func handleStopPrank(e *Executor, _ common.Address, _ []interface{}) ([]interface{}, error) {
	e.prank = startPrank{}
	return nil, nil
}

func handleExpectRevert(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	if e.expectRevert.active {
		return nil, fmt.Errorf("You must call another function prior to expecting a second revert.")
	}
	e.expectRevert = expectRevertState{active: true, expected: args[0].([]byte)}
	return nil, nil
}

func handleDeal(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	who := args[0].(common.Address)
	value := args[1].(*big.Int)
	current := e.EVM.StateDB.GetBalance(who)
	e.EVM.StateDB.SubBalance(who, current)
	e.EVM.StateDB.AddBalance(who, value)
	return nil, nil
}

func handleEtch(e *Executor, _ common.Address, args []interface{}) ([]interface{}, error) {
	who := args[0].(common.Address)
	code := args[1].([]byte)
	e.EVM.StateDB.SetCode(who, code)
	return nil, nil
}
