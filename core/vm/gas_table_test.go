package vm

import "testing"

func TestMemoryExpansionGasNoGrowth(t *testing.T) {
	if got := MemoryExpansionGas(64, 64); got != 0 {
		t.Fatalf("MemoryExpansionGas(64,64) = %d, want 0", got)
	}
	if got := MemoryExpansionGas(64, 32); got != 0 {
		t.Fatalf("MemoryExpansionGas(64,32) = %d, want 0 for shrink", got)
	}
}

func TestMemoryExpansionGasQuadratic(t *testing.T) {
	// Growing from empty to 32 bytes is exactly one word: 3*1 + 1/512 = 3.
	if got := MemoryExpansionGas(0, 32); got != 3 {
		t.Fatalf("MemoryExpansionGas(0,32) = %d, want 3", got)
	}
	// Growing from empty to 1024 bytes is 32 words: 3*32 + 32*32/512 = 96 + 2 = 98.
	if got := MemoryExpansionGas(0, 1024); got != 98 {
		t.Fatalf("MemoryExpansionGas(0,1024) = %d, want 98", got)
	}
}

func TestToWordSizeRounding(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 1, 32: 1, 33: 2, 64: 2, 65: 3}
	for size, want := range cases {
		if got := toWordSize(size); got != want {
			t.Fatalf("toWordSize(%d) = %d, want %d", size, got, want)
		}
	}
}

func TestGasForCallSixtyThreeSixtyFourths(t *testing.T) {
	forwarded, deducted := GasForCall(6400, 6400, false)
	if want := uint64(6400 - 6400/64); forwarded != want {
		t.Fatalf("forwarded = %d, want %d", forwarded, want)
	}
	if deducted != forwarded {
		t.Fatalf("deducted = %d, want %d (no stipend without value transfer)", deducted, forwarded)
	}
}

func TestGasForCallRequestedBelowCap(t *testing.T) {
	forwarded, deducted := GasForCall(6400, 100, false)
	if forwarded != 100 || deducted != 100 {
		t.Fatalf("forwarded=%d deducted=%d, want 100/100 when request is below the 63/64 cap", forwarded, deducted)
	}
}

func TestGasForCallValueTransferAddsStipendOnTopOfForwarded(t *testing.T) {
	forwarded, deducted := GasForCall(6400, 100, true)
	if forwarded != 100+CallGasStipend {
		t.Fatalf("forwarded = %d, want %d", forwarded, 100+CallGasStipend)
	}
	if deducted != 100 {
		t.Fatalf("deducted = %d, want 100 (stipend is not charged to the caller)", deducted)
	}
}

func TestReturnGasFromCallSubtractsUnusedStipend(t *testing.T) {
	// Callee used none of its forwarded gas, so all of it including the
	// stipend is left over; the stipend itself must not be refunded since
	// it was never deducted from the caller's frame.
	got := ReturnGasFromCall(1000, 100+CallGasStipend, CallGasStipend)
	if got != 1000+100 {
		t.Fatalf("ReturnGasFromCall = %d, want %d", got, 1000+100)
	}
}

func TestReturnGasFromCallLeftOverBelowStipend(t *testing.T) {
	got := ReturnGasFromCall(1000, 500, CallGasStipend)
	if got != 1000 {
		t.Fatalf("ReturnGasFromCall = %d, want 1000 when leftover doesn't exceed the stipend", got)
	}
}
