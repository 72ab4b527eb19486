package vm

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLevelDBStateDBFlushAndReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "statedb")

	addr := common.HexToAddress("0xbeef")
	slot := common.HexToHash("0x01")
	val := common.HexToHash("0x2a")

	db, err := NewLevelDBStateDB(dir)
	if err != nil {
		t.Fatalf("NewLevelDBStateDB: %v", err)
	}
	db.AddBalance(addr, big.NewInt(42))
	db.SetCode(addr, []byte{0x60, 0x01})
	db.SetState(addr, slot, val)

	if err := db.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewLevelDBStateDB(dir)
	if err != nil {
		t.Fatalf("reopen NewLevelDBStateDB: %v", err)
	}
	defer reopened.Close()

	if got := reopened.GetBalance(addr); got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("GetBalance after reload = %v, want 42", got)
	}
	if got := reopened.GetCode(addr); len(got) != 2 || got[0] != 0x60 {
		t.Fatalf("GetCode after reload = %v, want [0x60 0x01]", got)
	}
	if got := reopened.GetState(addr, slot); got != val {
		t.Fatalf("GetState after reload = %v, want %v", got, val)
	}
}
