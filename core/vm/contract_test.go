package vm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestValidJumpdestSkipsPushImmediateData(t *testing.T) {
	// PUSH1 0x5b (data that looks like a JUMPDEST byte) JUMPDEST
	code := []byte{0x60, 0x5b, 0x5b}
	c := NewContract(common.Address{}, common.Address{}, uint256.NewInt(0), 0)
	c.SetCallCode(common.Hash{}, code)

	if c.validJumpdest(uint256.NewInt(1)) {
		t.Fatalf("offset 1 is PUSH1's immediate data, must not be a valid jumpdest")
	}
	if !c.validJumpdest(uint256.NewInt(2)) {
		t.Fatalf("offset 2 is a real JUMPDEST, must be valid")
	}
}

func TestValidJumpdestRejectsOutOfRange(t *testing.T) {
	code := []byte{0x5b}
	c := NewContract(common.Address{}, common.Address{}, uint256.NewInt(0), 0)
	c.SetCallCode(common.Hash{}, code)

	big := new(uint256.Int).SetAllOne()
	if c.validJumpdest(big) {
		t.Fatalf("an overflowing destination must never be a valid jumpdest")
	}
	if c.validJumpdest(uint256.NewInt(1)) {
		t.Fatalf("offset 1 is past the end of code, must not be a valid jumpdest")
	}
}

func TestGetOpPastEndOfCodeIsStop(t *testing.T) {
	c := NewContract(common.Address{}, common.Address{}, uint256.NewInt(0), 0)
	c.SetCallCode(common.Hash{}, []byte{0x60, 0x01})

	if op := c.GetOp(10); op != STOP {
		t.Fatalf("GetOp past end of code = %v, want STOP", op)
	}
}

func TestUseGas(t *testing.T) {
	c := NewContract(common.Address{}, common.Address{}, uint256.NewInt(0), 100)
	if !c.UseGas(40) {
		t.Fatalf("UseGas(40) on a 100-gas contract should succeed")
	}
	if c.Gas != 60 {
		t.Fatalf("Gas = %d, want 60", c.Gas)
	}
	if c.UseGas(1000) {
		t.Fatalf("UseGas(1000) should fail when only 60 gas remains")
	}
	if c.Gas != 60 {
		t.Fatalf("Gas must be unchanged after a failed UseGas, got %d", c.Gas)
	}
}
