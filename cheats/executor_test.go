package cheats

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hexonaut/foundry/core/vm"
)

func newTestExecutor(t *testing.T, ffi bool) (*Executor, common.Address) {
	t.Helper()
	statedb := vm.NewMemoryStateDB()
	blockCtx := vm.BlockContext{
		CanTransfer: func(db vm.StateDB, addr common.Address, amount *big.Int) bool {
			return db.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer: func(db vm.StateDB, from, to common.Address, amount *big.Int) {
			db.SubBalance(from, amount)
			db.AddBalance(to, amount)
		},
		GetHash:     func(uint64) common.Hash { return common.Hash{} },
		GasLimit:    30_000_000,
		BlockNumber: big.NewInt(1),
		Time:        big.NewInt(1000),
		BaseFee:     big.NewInt(1),
	}
	txCtx := vm.TxContext{Origin: common.HexToAddress("0x1"), GasPrice: big.NewInt(1)}
	evm := vm.NewEVM(blockCtx, txCtx, statedb, 1, vm.Config{})
	exec := NewExecutor(evm, ffi)
	caller := common.HexToAddress("0xcafe")
	return exec, caller
}

func cheatCalldata(t *testing.T, name string, inputTypes []string, args ...interface{}) []byte {
	t.Helper()
	inArgs := make(abi.Arguments, len(inputTypes))
	for i, tn := range inputTypes {
		typ, err := abi.NewType(tn, "", nil)
		if err != nil {
			t.Fatalf("abi.NewType(%q): %v", tn, err)
		}
		inArgs[i] = abi.Argument{Type: typ}
	}
	outArgs := abi.Arguments{}
	method := abi.NewMethod(name, name, abi.Function, "external", false, false, inArgs, outArgs)
	packedArgs, err := inArgs.Pack(args...)
	if err != nil {
		t.Fatalf("packing args for %s: %v", name, err)
	}
	return append(method.ID, packedArgs...)
}

func callCheat(t *testing.T, e *Executor, caller common.Address, calldata []byte) ([]byte, error) {
	t.Helper()
	ret, _, err := e.EVM.Call(caller, CheatcodeAddress, calldata, 1_000_000, big.NewInt(0))
	return ret, err
}

func TestWarpAffectsTimestampOpcode(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	calldata := cheatCalldata(t, "warp", []string{"uint256"}, big.NewInt(12345))
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("warp: %v", err)
	}
	if got := e.EVM.BlockTimestamp(); got.Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("BlockTimestamp() = %v, want 12345", got)
	}
}

func TestRollAffectsBlockNumber(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	calldata := cheatCalldata(t, "roll", []string{"uint256"}, big.NewInt(999))
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if got := e.EVM.BlockNumber(); got.Cmp(big.NewInt(999)) != 0 {
		t.Fatalf("BlockNumber() = %v, want 999", got)
	}
}

func TestFeeAffectsBaseFee(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	calldata := cheatCalldata(t, "fee", []string{"uint256"}, big.NewInt(42))
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("fee: %v", err)
	}
	if got := e.EVM.BlockBaseFee(); got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("BlockBaseFee() = %v, want 42", got)
	}
}

func TestDealSetsBalance(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	who := common.HexToAddress("0xbeef")
	calldata := cheatCalldata(t, "deal", []string{"address", "uint256"}, who, big.NewInt(1_000_000))
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("deal: %v", err)
	}
	if got := e.EVM.StateDB.GetBalance(who); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("GetBalance() = %v, want 1000000", got)
	}
}

func TestStoreLoadRoundtrip(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	target := common.HexToAddress("0xd00d")
	slot := common.HexToHash("0x01")
	val := common.HexToHash("0x2a")

	storeCalldata := cheatCalldata(t, "store", []string{"address", "bytes32", "bytes32"}, target, [32]byte(slot), [32]byte(val))
	if _, err := callCheat(t, e, caller, storeCalldata); err != nil {
		t.Fatalf("store: %v", err)
	}

	loadCalldata := cheatCalldata(t, "load", []string{"address", "bytes32"}, target, [32]byte(slot))
	ret, err := callCheat(t, e, caller, loadCalldata)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	bytes32Type, _ := abi.NewType("bytes32", "", nil)
	out := abi.Arguments{{Type: bytes32Type}}
	vals, err := out.Unpack(ret)
	if err != nil {
		t.Fatalf("unpacking load result: %v", err)
	}
	if got := common.Hash(vals[0].([32]byte)); got != val {
		t.Fatalf("load() = %v, want %v", got, val)
	}
}

func TestAddrSignRoundtrip(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	sk := big.NewInt(0xc0ffee)
	digest := crypto.Keccak256Hash([]byte("hello"))

	addrCalldata := cheatCalldata(t, "addr", []string{"uint256"}, sk)
	ret, err := callCheat(t, e, caller, addrCalldata)
	if err != nil {
		t.Fatalf("addr: %v", err)
	}
	addrType, _ := abi.NewType("address", "", nil)
	out := abi.Arguments{{Type: addrType}}
	vals, err := out.Unpack(ret)
	if err != nil {
		t.Fatalf("unpacking addr result: %v", err)
	}
	wantAddr := vals[0].(common.Address)

	signCalldata := cheatCalldata(t, "sign", []string{"uint256", "bytes32"}, sk, [32]byte(digest))
	ret, err = callCheat(t, e, caller, signCalldata)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	u8Type, _ := abi.NewType("uint8", "", nil)
	b32Type, _ := abi.NewType("bytes32", "", nil)
	sigOut := abi.Arguments{{Type: u8Type}, {Type: b32Type}, {Type: b32Type}}
	sigVals, err := sigOut.Unpack(ret)
	if err != nil {
		t.Fatalf("unpacking sign result: %v", err)
	}
	v := sigVals[0].(uint8)
	r := sigVals[1].([32]byte)
	s := sigVals[2].([32]byte)

	sig := make([]byte, 65)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v - 27

	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		t.Fatalf("SigToPub: %v", err)
	}
	if recovered := crypto.PubkeyToAddress(*pub); recovered != wantAddr {
		t.Fatalf("recovered signer = %v, want %v", recovered, wantAddr)
	}
}

func TestAddrRejectsZeroKey(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	calldata := cheatCalldata(t, "addr", []string{"uint256"}, big.NewInt(0))
	_, err := callCheat(t, e, caller, calldata)
	if !errors.Is(err, vm.ErrExecutionReverted) {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
}

func TestPrankIsOneShot(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	pranked := common.HexToAddress("0xfeed")

	calldata := cheatCalldata(t, "prank", []string{"address"}, pranked)
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("prank: %v", err)
	}

	if e.nextMsgSender == nil {
		t.Fatalf("nextMsgSender not set after prank")
	}
	if got := e.applyPrank(caller); got != pranked {
		t.Fatalf("applyPrank() = %v, want %v", got, pranked)
	}
	if e.nextMsgSender != nil {
		t.Fatalf("prank must be consumed after a single applyPrank")
	}

	if got := e.applyPrank(caller); got != caller {
		t.Fatalf("a second call after the one-shot prank must see the real caller, got %v", got)
	}
}

func TestStartPrankPersistsAcrossCalls(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	pranked := common.HexToAddress("0xfeed")

	calldata := cheatCalldata(t, "startPrank", []string{"address"}, pranked)
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("startPrank: %v", err)
	}

	if got := e.applyPrank(caller); got != pranked {
		t.Fatalf("applyPrank() #1 = %v, want %v", got, pranked)
	}
	if got := e.applyPrank(caller); got != pranked {
		t.Fatalf("startPrank must still apply on the second call, got %v want %v", got, pranked)
	}

	stopCalldata := cheatCalldata(t, "stopPrank", nil)
	if _, err := callCheat(t, e, caller, stopCalldata); err != nil {
		t.Fatalf("stopPrank: %v", err)
	}
	if got := e.applyPrank(caller); got != caller {
		t.Fatalf("stopPrank must end the override, got %v want %v", got, caller)
	}
}

func TestPrankAndStartPrankAreMutuallyExclusive(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	pranked := common.HexToAddress("0xfeed")

	startCalldata := cheatCalldata(t, "startPrank", []string{"address"}, pranked)
	if _, err := callCheat(t, e, caller, startCalldata); err != nil {
		t.Fatalf("startPrank: %v", err)
	}

	prankCalldata := cheatCalldata(t, "prank", []string{"address"}, pranked)
	_, err := callCheat(t, e, caller, prankCalldata)
	if !errors.Is(err, vm.ErrExecutionReverted) {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
}

func TestFfiDisabledByDefault(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	calldata := cheatCalldata(t, "ffi", []string{"string[]"}, []string{"echo", "hi"})
	_, err := callCheat(t, e, caller, calldata)
	if !errors.Is(err, vm.ErrExecutionReverted) {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
}

func TestExpectRevertMatchesRawBytes(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	expected := []byte("nope")

	calldata := cheatCalldata(t, "expectRevert", []string{"bytes"}, expected)
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("expectRevert: %v", err)
	}

	target := common.HexToAddress("0xd00d")
	revertCode := buildRevertWithData(expected)
	e.EVM.StateDB.SetCode(target, revertCode)

	ret, _, err := e.EVM.Call(caller, target, nil, 1_000_000, big.NewInt(0))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(ret) != string(dummyOutput) {
		t.Fatalf("ret = %x, want dummyOutput", ret)
	}
}

// buildRevertWithData assembles bytecode that stores data at memory
// offset 0 and reverts with exactly len(data) bytes, for data lengths of
// at most 32 bytes only (test helper, not a general assembler).
func buildRevertWithData(data []byte) []byte {
	var code []byte
	var word [32]byte
	copy(word[:], data)
	// PUSH32 <word>
	code = append(code, 0x7f)
	code = append(code, word[:]...)
	// PUSH1 0, MSTORE
	code = append(code, 0x60, 0x00, 0x52)
	// PUSH1 len(data), PUSH1 0, REVERT
	code = append(code, 0x60, byte(len(data)), 0x60, 0x00, 0xfd)
	return code
}

func TestExpectRevertMismatchErrors(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	expected := []byte("nope")

	calldata := cheatCalldata(t, "expectRevert", []string{"bytes"}, expected)
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("expectRevert: %v", err)
	}

	target := common.HexToAddress("0xd00d")
	revertCode := buildRevertWithData([]byte("wrong"))
	e.EVM.StateDB.SetCode(target, revertCode)

	_, _, err := e.EVM.Call(caller, target, nil, 1_000_000, big.NewInt(0))
	if !errors.Is(err, vm.ErrExecutionReverted) {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
}

func TestExpectRevertFailsWhenCallSucceeds(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	calldata := cheatCalldata(t, "expectRevert", []string{"bytes"}, []byte("nope"))
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("expectRevert: %v", err)
	}

	target := common.HexToAddress("0xd00d")
	// PUSH1 0 PUSH1 0 RETURN: succeeds with empty return data.
	e.EVM.StateDB.SetCode(target, []byte{0x60, 0x00, 0x60, 0x00, 0xf3})

	_, _, err := e.EVM.Call(caller, target, nil, 1_000_000, big.NewInt(0))
	if !errors.Is(err, vm.ErrExecutionReverted) {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
}

func TestEtchInstallsCode(t *testing.T) {
	e, caller := newTestExecutor(t, false)
	target := common.HexToAddress("0xd00d")
	code := []byte{0x60, 0x01}

	calldata := cheatCalldata(t, "etch", []string{"address", "bytes"}, target, code)
	if _, err := callCheat(t, e, caller, calldata); err != nil {
		t.Fatalf("etch: %v", err)
	}
	if got := e.EVM.StateDB.GetCode(target); string(got) != string(code) {
		t.Fatalf("GetCode() = %x, want %x", got, code)
	}
}

func TestResetClearsOverlayAndExtensions(t *testing.T) {
	e, caller := newTestExecutor(t, false)

	if _, err := callCheat(t, e, caller, cheatCalldata(t, "warp", []string{"uint256"}, big.NewInt(12345))); err != nil {
		t.Fatalf("warp: %v", err)
	}
	pranked := common.HexToAddress("0xfeed")
	if _, err := callCheat(t, e, caller, cheatCalldata(t, "startPrank", []string{"address"}, pranked)); err != nil {
		t.Fatalf("startPrank: %v", err)
	}
	if _, err := callCheat(t, e, caller, cheatCalldata(t, "expectRevert", []string{"bytes"}, []byte("nope"))); err != nil {
		t.Fatalf("expectRevert: %v", err)
	}

	e.Reset()

	wantTime := e.EVM.Context.Time
	if got := e.EVM.BlockTimestamp(); got.Cmp(wantTime) != 0 {
		t.Fatalf("BlockTimestamp() after Reset = %v, want %v", got, wantTime)
	}
	if got := e.applyPrank(caller); got != caller {
		t.Fatalf("applyPrank() after Reset = %v, want %v", got, caller)
	}
	if e.expectRevert.active {
		t.Fatalf("expectRevert still active after Reset")
	}
}

func TestReservedAddressesHavePlaceholderCode(t *testing.T) {
	e, _ := newTestExecutor(t, false)
	if len(e.EVM.StateDB.GetCode(CheatcodeAddress)) == 0 {
		t.Fatalf("CheatcodeAddress has no placeholder code")
	}
	if len(e.EVM.StateDB.GetCode(ConsoleAddress)) == 0 {
		t.Fatalf("ConsoleAddress has no placeholder code")
	}
}
