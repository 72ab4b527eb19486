package vm

import "testing"

func TestMemorySetAndGet(t *testing.T) {
	m := NewMemory()
	m.Resize(64)
	m.Set(0, 4, []byte{1, 2, 3, 4})

	got := m.Get(0, 4)
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Get(0,4)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if m.Len() != 64 {
		t.Fatalf("Len() = %d, want 64", m.Len())
	}
}

func TestMemorySet32(t *testing.T) {
	m := NewMemory()
	m.Resize(32)
	var val [32]byte
	val[31] = 0xff
	m.Set32(0, &val)

	got := m.Get(0, 32)
	if got[31] != 0xff {
		t.Fatalf("Set32 did not write the low byte correctly")
	}
	for i := 0; i < 31; i++ {
		if got[i] != 0 {
			t.Fatalf("Set32 wrote a non-zero byte at index %d", i)
		}
	}
}

func TestMemoryGetPtrNoCopy(t *testing.T) {
	m := NewMemory()
	m.Resize(32)
	m.Set(0, 1, []byte{0x42})

	ptr := m.GetPtr(0, 32)
	ptr[0] = 0x43

	if m.Get(0, 1)[0] != 0x43 {
		t.Fatalf("GetPtr did not alias the underlying store")
	}
}
