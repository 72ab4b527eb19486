package vm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func newTestEVM(t *testing.T) *EVM {
	t.Helper()
	statedb := NewMemoryStateDB()
	blockCtx := BlockContext{
		CanTransfer: func(db StateDB, addr common.Address, amount *big.Int) bool {
			return db.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer: func(db StateDB, from, to common.Address, amount *big.Int) {
			db.SubBalance(from, amount)
			db.AddBalance(to, amount)
		},
		GetHash:     func(uint64) common.Hash { return common.Hash{} },
		GasLimit:    30_000_000,
		BlockNumber: big.NewInt(1),
		Time:        big.NewInt(1000),
		BaseFee:     big.NewInt(1),
	}
	txCtx := TxContext{Origin: common.HexToAddress("0x1"), GasPrice: big.NewInt(1)}
	return NewEVM(blockCtx, txCtx, statedb, 1, Config{})
}

// PUSH1 2 PUSH1 1 ADD PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN
var addAndReturnCode = []byte{
	0x60, 0x02,
	0x60, 0x01,
	0x01,
	0x60, 0x00,
	0x52,
	0x60, 0x20,
	0x60, 0x00,
	0xf3,
}

func TestInterpreterRunAddAndReturn(t *testing.T) {
	evm := newTestEVM(t)
	caller := common.HexToAddress("0x1")
	target := common.HexToAddress("0x2")
	evm.StateDB.SetCode(target, addAndReturnCode)

	ret, leftOverGas, err := evm.Call(caller, target, nil, 100000, big.NewInt(0))
	if err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if len(ret) != 32 {
		t.Fatalf("len(ret) = %d, want 32", len(ret))
	}
	if ret[31] != 3 {
		t.Fatalf("ret[31] = %d, want 3", ret[31])
	}
	if leftOverGas == 0 {
		t.Fatalf("leftOverGas = 0, want some gas remaining")
	}
}

// PUSH1 0 PUSH1 0 REVERT
var revertCode = []byte{0x60, 0x00, 0x60, 0x00, 0xfd}

func TestInterpreterRunRevert(t *testing.T) {
	evm := newTestEVM(t)
	caller := common.HexToAddress("0x1")
	target := common.HexToAddress("0x2")
	evm.StateDB.SetCode(target, revertCode)

	_, _, err := evm.Call(caller, target, nil, 100000, big.NewInt(0))
	if err != ErrExecutionReverted {
		t.Fatalf("err = %v, want ErrExecutionReverted", err)
	}
}

func TestCallDepthLimit(t *testing.T) {
	evm := newTestEVM(t)
	evm.Config.MaxCallDepth = 2

	caller := common.HexToAddress("0x1")
	target := common.HexToAddress("0x2")

	savedDepth := 3
	evm.depth = savedDepth
	_, _, err := evm.Call(caller, target, nil, 100000, big.NewInt(0))
	if err != ErrDepth {
		t.Fatalf("err = %v, want ErrDepth", err)
	}
}
