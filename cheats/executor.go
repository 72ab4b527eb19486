package cheats

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hexonaut/foundry/core/vm"
	"github.com/hexonaut/foundry/log"
	"github.com/hexonaut/foundry/metrics"
)

// startPrank records a startPrank/stopPrank override: any call made at
// exactly the recorded depth whose caller is still originalMsgSender is
// rewritten to appear from permanentCaller; calls at other depths are
// left alone.
type startPrank struct {
	active           bool
	originalMsgSender common.Address
	permanentCaller  common.Address
	depth            int
}

// expectRevertState records a pending expectRevert payload match.
type expectRevertState struct {
	active   bool
	expected []byte
}

// Executor wraps a core/vm.EVM and extends it with the mutable state
// cheatcodes need: the block overlay, one-shot and persistent prank
// rewriting, the pending expectRevert payload, the FFI gate, and the
// console/event log sinks. It registers itself as the EVM's Intercept
// hook so every call and create still runs through the faithful
// call/create core in core/vm; only calls to the two reserved addresses
// are diverted.
type Executor struct {
	EVM *vm.EVM

	Overlay BlockOverlay

	nextMsgSender *common.Address
	prank         startPrank
	expectRevert  expectRevertState

	ffiEnabled bool

	consoleLogs []string
	logs        *LogCollector

	dispatcher *cheatcodeDispatcher
	log        *log.Logger
}

// NewExecutor wraps evm and wires the cheatcode intercept. ffiEnabled
// gates the ffi cheatcode exactly as the --ffi CLI flag does in Forge.
func NewExecutor(evm *vm.EVM, ffiEnabled bool) *Executor {
	e := &Executor{
		EVM:        evm,
		ffiEnabled: ffiEnabled,
		logs:       NewLogCollector(),
		log:        log.Default().Module("cheats"),
	}
	e.Overlay.evm = evm
	evm.StateDB = wrapStateDB(evm.StateDB, e.logs)
	e.dispatcher = newCheatcodeDispatcher(e)
	evm.Intercept = e.intercept

	// A contract probing address(vm).code.length, as forge-std's
	// vm-presence check does, must see a deployed contract even though
	// every call to it is actually intercepted above.
	evm.StateDB.SetCode(CheatcodeAddress, []byte{0x00})
	evm.StateDB.SetCode(ConsoleAddress, []byte{0x00})

	return e
}

// Call drives a single top-level interposed call through the wrapped
// EVM, the same entry point forge's own top-level test-call dispatch
// would use, and records its gas usage and resulting call depth as
// metrics observations alongside it.
func (e *Executor) Call(caller, target common.Address, input []byte, gas uint64, value *big.Int) ([]byte, uint64, error) {
	ret, leftOverGas, err := e.EVM.Call(caller, target, input, gas, value)
	metrics.CallGasUsed.Observe(float64(gas - leftOverGas))
	metrics.CallDepth.Observe(float64(e.currentDepth()))
	return ret, leftOverGas, err
}

// recordConsole appends a decoded console.log line to both the plain
// string history and the combined ordered log stream.
func (e *Executor) recordConsole(line string) {
	e.consoleLogs = append(e.consoleLogs, line)
	e.logs.RecordConsole(line)
}

// ConsoleLogs returns every console.log line recorded so far, in call
// order.
func (e *Executor) ConsoleLogs() []string {
	out := make([]string, len(e.consoleLogs))
	copy(out, e.consoleLogs)
	return out
}

// Logs returns the combined structured-event and console-log stream, in
// the order described by the log collector: recognized LOG* events
// rendered to their DSTest-style single-line form, then every
// console.log line, in insertion order within each group.
func (e *Executor) Logs() []string {
	return e.logs.Combined(e.consoleLogs)
}

// currentDepth returns the EVM's call depth as Forge's own metadata.depth
// would report it: 0 at the top-level call.
func (e *Executor) currentDepth() int {
	return e.EVM.Depth()
}

// Reset clears every cheat overlay and executor state extension: the
// block timestamp/number/base-fee overrides, both prank forms, and the
// pending expectRevert payload, leaving console/event logs untouched. A
// driver replaying several independent top-level calls through one
// Executor calls this between them instead of constructing a fresh
// Executor (and re-installing the reserved addresses) each time.
func (e *Executor) Reset() {
	e.Overlay.Reset()
	e.nextMsgSender = nil
	e.prank = startPrank{}
	e.expectRevert = expectRevertState{}
}
