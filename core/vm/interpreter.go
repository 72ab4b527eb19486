// Package vm implements a from-scratch, Cancun-era Ethereum Virtual
// Machine interpreter: opcode dispatch, gas metering, and the call/create
// entry points a higher-level executor can wrap to intercept execution at
// known addresses.
package vm

import (
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// GetHashFunc resolves a historical block hash for BLOCKHASH.
type GetHashFunc func(blockNumber uint64) common.Hash

// BlockContext carries block-scoped values that do not change across
// calls within a single transaction or cheatcode invocation.
type BlockContext struct {
	CanTransfer func(StateDB, common.Address, *big.Int) bool
	Transfer    func(StateDB, common.Address, common.Address, *big.Int)
	GetHash     GetHashFunc

	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber *big.Int
	Time        *big.Int
	Difficulty  *big.Int
	BaseFee     *big.Int
	Random      *common.Hash
}

// TxContext carries values specific to the originating transaction, or to
// the synthetic call an executor is replaying on its behalf.
type TxContext struct {
	Origin   common.Address
	GasPrice *big.Int
}

// Log is the event record emitted by LOG0-LOG4 (console.log lines are
// recorded as plain strings, not as Logs). It mirrors go-ethereum's core/types.Log shape closely enough
// to be re-encoded with the same ABI tooling, without depending on the
// rest of that package's block/receipt machinery.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// StateDB is the account and storage view the interpreter reads and
// writes through. The cheats package wraps a concrete implementation of
// this interface to mirror AddLog into its log collector, without the
// interpreter needing to know; its store/load/deal cheatcodes call the
// other methods directly.
type StateDB interface {
	CreateAccount(common.Address)

	GetBalance(common.Address) *big.Int
	AddBalance(common.Address, *big.Int)
	SubBalance(common.Address, *big.Int)

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64)

	GetCodeHash(common.Address) common.Hash
	GetCode(common.Address) []byte
	SetCode(common.Address, []byte)
	GetCodeSize(common.Address) int

	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash)

	SelfDestruct(common.Address)
	HasSelfDestructed(common.Address) bool

	Exist(common.Address) bool
	Empty(common.Address) bool

	AddressInAccessList(common.Address) bool
	SlotInAccessList(common.Address, common.Hash) (addressOk bool, slotOk bool)
	AddAddressToAccessList(common.Address)
	AddSlotToAccessList(common.Address, common.Hash)

	AddLog(*Log)

	Snapshot() int
	RevertToSnapshot(int)
}

// BlockOverrides holds optional replacements for TIMESTAMP, NUMBER, and
// BASEFEE, consulted by the corresponding opcodes in place of Context
// whenever set. A nil field defers to Context unchanged.
type BlockOverrides struct {
	Timestamp *big.Int
	Number    *big.Int
	BaseFee   *big.Int
}

// Config tunes the interpreter's behavior outside of fork-specific gas
// rules. MaxCallDepth defaults to 1024 when zero.
type Config struct {
	MaxCallDepth int
}

// EVM is the execution context shared by every call frame of a single
// top-level invocation. It owns the jump table, the account view, and the
// call/create entry points; depth and readOnly track frame nesting.
type EVM struct {
	Context   BlockContext
	TxContext TxContext
	StateDB   StateDB
	Config    Config

	chainID uint64
	depth   int

	readOnly bool

	jumpTable   *JumpTable
	precompiles map[common.Address]PrecompiledContract

	warmAddresses mapset.Set[common.Address]
	warmSlots     map[common.Address]mapset.Set[common.Hash]

	// BlockOverrides lets an embedding executor shadow individual block
	// context fields (TIMESTAMP/NUMBER/BASEFEE) for the remainder of the
	// EVM's lifetime, e.g. in response to a warp/roll/fee cheatcode,
	// without mutating Context itself.
	BlockOverrides BlockOverrides

	// Intercept, when set, is consulted before the default call dispatch
	// for CALL/STATICCALL/DELEGATECALL/CALLCODE. It lets an embedding
	// executor redirect calls to reserved addresses without altering the
	// rest of the call/create machinery.
	Intercept func(caller common.Address, addr common.Address, input []byte, gas uint64, value *big.Int, kind CallKind) (ret []byte, leftOverGas uint64, handled bool, err error)

	interceptBypass bool
}

// BypassNextIntercept skips the Intercept hook for the single call
// entered next on this EVM, then clears itself (creates never consult
// the hook or this flag). A hook that rewrites a
// call (e.g. for a prank) and re-enters through Call/CallCode/DelegateCall/
// StaticCall to let the faithful call/create core run it needs this: without
// it, that re-entry would hit the very same hook on the very same EVM and
// recurse forever. Sub-calls the re-entered frame itself makes are
// unaffected, since the flag is consumed before any of them run.
func (evm *EVM) BypassNextIntercept() {
	evm.interceptBypass = true
}

// CallKind distinguishes the four EVM call opcodes for the purposes of
// value/context semantics.
type CallKind int

const (
	CallKindCall CallKind = iota
	CallKindCallCode
	CallKindDelegateCall
	CallKindStaticCall
)

// NewEVM constructs an EVM ready to execute calls against statedb.
func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, chainID uint64, config Config) *EVM {
	if config.MaxCallDepth == 0 {
		config.MaxCallDepth = CallCreateDepthMax
	}
	evm := &EVM{
		Context:       blockCtx,
		TxContext:     txCtx,
		StateDB:       statedb,
		Config:        config,
		chainID:       chainID,
		jumpTable:     NewDefaultJumpTable(),
		precompiles:   DefaultPrecompiles(),
		warmAddresses: mapset.NewThreadUnsafeSet[common.Address](),
		warmSlots:     make(map[common.Address]mapset.Set[common.Hash]),
	}
	return evm
}

// ResetAccessList clears the EIP-2929 warm sets. Neither cheats.Executor
// nor the CLI calls it, so the warm sets otherwise last for the EVM's
// lifetime.
func (evm *EVM) ResetAccessList() {
	evm.warmAddresses = mapset.NewThreadUnsafeSet[common.Address]()
	evm.warmSlots = make(map[common.Address]mapset.Set[common.Hash])
}

// accessAddress marks addr warm and returns the gas cost of this access:
// GasCallCold the first time, GasCallWarm thereafter.
func (evm *EVM) accessAddress(addr common.Address) uint64 {
	if evm.warmAddresses.Contains(addr) {
		return GasCallWarm
	}
	evm.warmAddresses.Add(addr)
	return GasCallCold
}

// accessSlot marks (addr, slot) warm and returns the gas cost of this
// access: GasSloadCold the first time, GasSloadWarm thereafter.
func (evm *EVM) accessSlot(addr common.Address, slot common.Hash) uint64 {
	slots, ok := evm.warmSlots[addr]
	if !ok {
		slots = mapset.NewThreadUnsafeSet[common.Hash]()
		evm.warmSlots[addr] = slots
	}
	if slots.Contains(slot) {
		return GasSloadWarm
	}
	slots.Add(slot)
	return GasSloadCold
}

// BlockTimestamp returns BlockOverrides.Timestamp if set, else Context.Time.
func (evm *EVM) BlockTimestamp() *big.Int {
	if evm.BlockOverrides.Timestamp != nil {
		return evm.BlockOverrides.Timestamp
	}
	return evm.Context.Time
}

// BlockNumber returns BlockOverrides.Number if set, else Context.BlockNumber.
func (evm *EVM) BlockNumber() *big.Int {
	if evm.BlockOverrides.Number != nil {
		return evm.BlockOverrides.Number
	}
	return evm.Context.BlockNumber
}

// BlockBaseFee returns BlockOverrides.BaseFee if set, else Context.BaseFee.
func (evm *EVM) BlockBaseFee() *big.Int {
	if evm.BlockOverrides.BaseFee != nil {
		return evm.BlockOverrides.BaseFee
	}
	return evm.Context.BaseFee
}

// ResetBlockOverrides clears every active TIMESTAMP/NUMBER/BASEFEE
// override, restoring Context's values.
func (evm *EVM) ResetBlockOverrides() {
	evm.BlockOverrides = BlockOverrides{}
}

// Depth reports the current call nesting depth.
func (evm *EVM) Depth() int {
	return evm.depth
}

// ReadOnly reports whether the current frame forbids state mutation.
func (evm *EVM) ReadOnly() bool {
	return evm.readOnly
}

// Interpreter runs the opcode loop for a single call frame.
type Interpreter struct {
	evm       *EVM
	readOnly  bool
	returnData []byte
}

// NewInterpreter returns an interpreter bound to evm.
func NewInterpreter(evm *EVM) *Interpreter {
	return &Interpreter{evm: evm}
}

// Run executes contract's code against the given input, returning its
// return data. readOnly forbids SSTORE/LOG/CREATE/SELFDESTRUCT and value
// transfer for the duration of this frame.
func (in *Interpreter) Run(contract *Contract, input []byte, readOnly bool) ([]byte, error) {
	contract.Input = input

	if readOnly && !in.evm.readOnly {
		in.evm.readOnly = true
		defer func() { in.evm.readOnly = false }()
	}
	in.readOnly = in.evm.readOnly

	if len(contract.Code) == 0 {
		return nil, nil
	}

	var (
		op          OpCode
		mem         = NewMemory()
		stack       = NewStack()
		pc          = uint64(0)
		returnBytes []byte
	)
	defer ReturnStack(stack)

	scope := &ScopeContext{Memory: mem, Stack: stack, Contract: contract}

	for {
		op = contract.GetOp(pc)
		operation := in.evm.jumpTable[op]
		if operation == nil {
			return nil, ErrInvalidOpCode
		}
		if sLen := stack.Len(); sLen < operation.minStack {
			return nil, ErrStackUnderflow
		} else if sLen > operation.maxStack {
			return nil, ErrStackOverflow
		}
		if operation.writes && in.readOnly {
			return nil, ErrWriteProtection
		}

		if !contract.UseGas(operation.constantGas) {
			return nil, ErrOutOfGas
		}

		var memorySize uint64
		if operation.memorySize != nil {
			size, overflow := operation.memorySize(stack)
			if overflow {
				return nil, ErrOutOfGas
			}
			memorySize = toWordSize(size) * 32
		}

		if operation.dynamicGas != nil {
			dynCost, err := operation.dynamicGas(in, scope, memorySize)
			if err != nil {
				return nil, err
			}
			if !contract.UseGas(dynCost) {
				return nil, ErrOutOfGas
			}
		}

		if memorySize > uint64(mem.Len()) {
			mem.Resize(memorySize)
		}

		res, err := operation.execute(&pc, in, scope)
		if err != nil {
			return res, err
		}
		returnBytes = res

		if operation.halts {
			return returnBytes, nil
		}
		if !operation.jumps {
			pc++
		}
	}
}
