package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// journalEntry undoes one state mutation when RevertToSnapshot unwinds
// past it, mirroring go-ethereum's own state journal design without
// pulling in its trie/database machinery.
type journalEntry func(s *MemoryStateDB)

// MemoryStateDB is a minimal, map-backed StateDB good enough to drive the
// interpreter and the cheatcode executor against in tests: it keeps
// every account field in plain Go maps and supports real nested
// snapshot/revert via an undo journal, rather than the no-op stub the
// teacher's own instruction tests get away with.
type MemoryStateDB struct {
	balances   map[common.Address]*big.Int
	nonces     map[common.Address]uint64
	codes      map[common.Address][]byte
	codeHashes map[common.Address]common.Hash
	storage    map[common.Address]map[common.Hash]common.Hash
	exists     map[common.Address]bool
	destructed map[common.Address]bool

	addrAccess map[common.Address]bool
	slotAccess map[common.Address]map[common.Hash]bool

	logs []*Log

	journal []journalEntry
}

// NewMemoryStateDB returns an empty state.
func NewMemoryStateDB() *MemoryStateDB {
	return &MemoryStateDB{
		balances:   make(map[common.Address]*big.Int),
		nonces:     make(map[common.Address]uint64),
		codes:      make(map[common.Address][]byte),
		codeHashes: make(map[common.Address]common.Hash),
		storage:    make(map[common.Address]map[common.Hash]common.Hash),
		exists:     make(map[common.Address]bool),
		destructed: make(map[common.Address]bool),
		addrAccess: make(map[common.Address]bool),
		slotAccess: make(map[common.Address]map[common.Hash]bool),
	}
}

var _ StateDB = (*MemoryStateDB)(nil)

func (s *MemoryStateDB) append(undo journalEntry) {
	s.journal = append(s.journal, undo)
}

func (s *MemoryStateDB) CreateAccount(addr common.Address) {
	existed := s.exists[addr]
	s.append(func(s *MemoryStateDB) { s.exists[addr] = existed })
	s.exists[addr] = true
}

func (s *MemoryStateDB) GetBalance(addr common.Address) *big.Int {
	if b, ok := s.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (s *MemoryStateDB) AddBalance(addr common.Address, amount *big.Int) {
	prev := s.GetBalance(addr)
	s.append(func(s *MemoryStateDB) { s.balances[addr] = prev })
	s.balances[addr] = new(big.Int).Add(prev, amount)
	s.exists[addr] = true
}

func (s *MemoryStateDB) SubBalance(addr common.Address, amount *big.Int) {
	prev := s.GetBalance(addr)
	s.append(func(s *MemoryStateDB) { s.balances[addr] = prev })
	s.balances[addr] = new(big.Int).Sub(prev, amount)
}

func (s *MemoryStateDB) GetNonce(addr common.Address) uint64 {
	return s.nonces[addr]
}

func (s *MemoryStateDB) SetNonce(addr common.Address, nonce uint64) {
	prev := s.nonces[addr]
	s.append(func(s *MemoryStateDB) { s.nonces[addr] = prev })
	s.nonces[addr] = nonce
}

func (s *MemoryStateDB) GetCodeHash(addr common.Address) common.Hash {
	return s.codeHashes[addr]
}

func (s *MemoryStateDB) GetCode(addr common.Address) []byte {
	return s.codes[addr]
}

func (s *MemoryStateDB) SetCode(addr common.Address, code []byte) {
	prevCode, prevHash := s.codes[addr], s.codeHashes[addr]
	s.append(func(s *MemoryStateDB) {
		s.codes[addr] = prevCode
		s.codeHashes[addr] = prevHash
	})
	s.codes[addr] = code
	s.codeHashes[addr] = codeHash(code)
	s.exists[addr] = true
}

func (s *MemoryStateDB) GetCodeSize(addr common.Address) int {
	return len(s.codes[addr])
}

func (s *MemoryStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m, ok := s.storage[addr]; ok {
		return m[key]
	}
	return common.Hash{}
}

func (s *MemoryStateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	prev := s.GetState(addr, key)
	s.append(func(s *MemoryStateDB) { s.setStateRaw(addr, key, prev) })
	s.setStateRaw(addr, key, value)
}

func (s *MemoryStateDB) setStateRaw(addr common.Address, key, value common.Hash) {
	m, ok := s.storage[addr]
	if !ok {
		m = make(map[common.Hash]common.Hash)
		s.storage[addr] = m
	}
	m[key] = value
}

func (s *MemoryStateDB) SelfDestruct(addr common.Address) {
	prev := s.destructed[addr]
	s.append(func(s *MemoryStateDB) { s.destructed[addr] = prev })
	s.destructed[addr] = true
}

func (s *MemoryStateDB) HasSelfDestructed(addr common.Address) bool {
	return s.destructed[addr]
}

func (s *MemoryStateDB) Exist(addr common.Address) bool {
	if s.exists[addr] {
		return true
	}
	if _, ok := s.balances[addr]; ok {
		return true
	}
	_, ok := s.codes[addr]
	return ok
}

func (s *MemoryStateDB) Empty(addr common.Address) bool {
	if !s.Exist(addr) {
		return true
	}
	return s.GetBalance(addr).Sign() == 0 && s.GetNonce(addr) == 0 && len(s.GetCode(addr)) == 0
}

func (s *MemoryStateDB) AddressInAccessList(addr common.Address) bool {
	return s.addrAccess[addr]
}

func (s *MemoryStateDB) SlotInAccessList(addr common.Address, slot common.Hash) (addressOk bool, slotOk bool) {
	addressOk = s.addrAccess[addr]
	if m, ok := s.slotAccess[addr]; ok {
		slotOk = m[slot]
	}
	return
}

func (s *MemoryStateDB) AddAddressToAccessList(addr common.Address) {
	if s.addrAccess[addr] {
		return
	}
	s.append(func(s *MemoryStateDB) { delete(s.addrAccess, addr) })
	s.addrAccess[addr] = true
}

func (s *MemoryStateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	s.AddAddressToAccessList(addr)
	m, ok := s.slotAccess[addr]
	if !ok {
		m = make(map[common.Hash]bool)
		s.slotAccess[addr] = m
	}
	if m[slot] {
		return
	}
	s.append(func(s *MemoryStateDB) { delete(m, slot) })
	m[slot] = true
}

func (s *MemoryStateDB) AddLog(log *Log) {
	idx := len(s.logs)
	s.append(func(s *MemoryStateDB) { s.logs = s.logs[:idx] })
	s.logs = append(s.logs, log)
}

// Logs returns every event recorded so far, across all snapshots still in
// effect.
func (s *MemoryStateDB) Logs() []*Log {
	out := make([]*Log, len(s.logs))
	copy(out, s.logs)
	return out
}

// Snapshot returns an id identifying the current journal length; rolling
// back to it unwinds every mutation recorded since.
func (s *MemoryStateDB) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot unwinds the journal back to id, applying each undo
// entry in reverse order, the same discipline go-ethereum's own
// StateDB.RevertToSnapshot follows.
func (s *MemoryStateDB) RevertToSnapshot(id int) {
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i](s)
	}
	s.journal = s.journal[:id]
}

func codeHash(code []byte) common.Hash {
	if len(code) == 0 {
		return common.Hash{}
	}
	return crypto.Keccak256Hash(code)
}
