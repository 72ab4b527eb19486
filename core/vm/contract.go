package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Contract represents one call frame's executable environment: the running
// code, its immutable input, and the gas remaining for this frame.
type Contract struct {
	CallerAddress common.Address
	Address       common.Address
	Code          []byte
	CodeHash      common.Hash
	Input         []byte

	Gas   uint64
	Value *uint256.Int

	jumpdests map[uint64]bool
}

// NewContract builds a call frame for code running at addr on behalf of
// caller, carrying value and the gas budget allotted to the frame.
func NewContract(caller, addr common.Address, value *uint256.Int, gas uint64) *Contract {
	return &Contract{
		CallerAddress: caller,
		Address:       addr,
		Value:         value,
		Gas:           gas,
	}
}

// SetCallCode attaches the code to execute along with its hash. Used by
// CALLCODE and DELEGATECALL, where Address stays the caller's storage
// context but Code comes from a different account.
func (c *Contract) SetCallCode(hash common.Hash, code []byte) {
	c.Code = code
	c.CodeHash = hash
}

// GetOp returns the opcode at pc, or STOP past the end of code.
func (c *Contract) GetOp(n uint64) OpCode {
	if n < uint64(len(c.Code)) {
		return OpCode(c.Code[n])
	}
	return STOP
}

// UseGas deducts amount from the frame's remaining gas. It reports false,
// leaving Gas unchanged, if amount exceeds what remains.
func (c *Contract) UseGas(amount uint64) bool {
	if c.Gas < amount {
		return false
	}
	c.Gas -= amount
	return true
}

// validJumpdest reports whether dest is a JUMPDEST reachable by JUMP/JUMPI,
// i.e. not inside PUSH immediate data. The jump destination analysis is
// memoized on first use.
func (c *Contract) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(c.Code)) {
		return false
	}
	if OpCode(c.Code[udest]) != JUMPDEST {
		return false
	}
	return c.isCode(udest)
}

// isCode reports whether udest is a genuine instruction start rather than
// PUSH immediate data, consulting (and populating) the jumpdest bitmap.
func (c *Contract) isCode(udest uint64) bool {
	if c.jumpdests == nil {
		c.jumpdests = analyzeJumpdests(c.Code)
	}
	return c.jumpdests[udest]
}

// analyzeJumpdests walks code once, skipping PUSH immediates, and records
// every byte offset that is a genuine instruction start.
func analyzeJumpdests(code []byte) map[uint64]bool {
	dests := make(map[uint64]bool)
	for i := uint64(0); i < uint64(len(code)); {
		dests[i] = true
		op := OpCode(code[i])
		if isPush(op) {
			i += pushSize(op) + 1
		} else {
			i++
		}
	}
	return dests
}
