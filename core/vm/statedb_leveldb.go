package vm

import (
	"bytes"
	"encoding/gob"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
)

// levelAccount is the on-disk representation of one account, gob-encoded
// under its address as the leveldb key. It carries only the durable
// fields a CLI run needs to resume from; access-list and log state are
// inherently per-transaction and are never persisted.
type levelAccount struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
	Storage map[common.Hash]common.Hash
}

// LevelDBStateDB is a MemoryStateDB whose account view can be loaded
// from, and checkpointed back to, a leveldb directory on disk. It
// implements the same vm.StateDB interface MemoryStateDB does by
// embedding it; only construction and persistence are new.
type LevelDBStateDB struct {
	*MemoryStateDB
	db *leveldb.DB
}

var _ StateDB = (*LevelDBStateDB)(nil)

// NewLevelDBStateDB opens (creating if necessary) a leveldb database at
// dir and loads every account it holds into a fresh MemoryStateDB, so
// execution proceeds entirely in memory and only Flush touches disk
// again.
func NewLevelDBStateDB(dir string) (*LevelDBStateDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	mem := NewMemoryStateDB()

	iter := db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		addr := common.BytesToAddress(iter.Key())
		var acct levelAccount
		if err := gob.NewDecoder(bytes.NewReader(iter.Value())).Decode(&acct); err != nil {
			db.Close()
			return nil, err
		}
		loadAccount(mem, addr, acct)
	}
	if err := iter.Error(); err != nil {
		db.Close()
		return nil, err
	}

	return &LevelDBStateDB{MemoryStateDB: mem, db: db}, nil
}

// loadAccount installs acct's fields directly into mem's backing maps,
// bypassing the undo journal: this is the database's initial state, not
// a mutation any in-progress call should ever revert past.
func loadAccount(mem *MemoryStateDB, addr common.Address, acct levelAccount) {
	if acct.Balance != nil {
		mem.balances[addr] = acct.Balance
	}
	if acct.Nonce != 0 {
		mem.nonces[addr] = acct.Nonce
	}
	if len(acct.Code) != 0 {
		mem.codes[addr] = acct.Code
		mem.codeHashes[addr] = codeHash(acct.Code)
	}
	if len(acct.Storage) != 0 {
		mem.storage[addr] = acct.Storage
	}
	mem.exists[addr] = true
}

// Flush checkpoints every account this LevelDBStateDB has touched back
// to disk, overwriting whatever was there before. It does not run
// automatically; a caller (typically the CLI, once a top-level call has
// completed) decides when a checkpoint is durable enough to persist.
func (s *LevelDBStateDB) Flush() error {
	batch := new(leveldb.Batch)
	for addr := range touchedAddresses(s.MemoryStateDB) {
		acct := levelAccount{
			Balance: s.GetBalance(addr),
			Nonce:   s.GetNonce(addr),
			Code:    s.GetCode(addr),
			Storage: s.storage[addr],
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(acct); err != nil {
			return err
		}
		batch.Put(addr.Bytes(), buf.Bytes())
	}
	return s.db.Write(batch, nil)
}

// Close releases the underlying leveldb handle. Callers that want their
// final state durable must Flush before Close.
func (s *LevelDBStateDB) Close() error {
	return s.db.Close()
}

func touchedAddresses(mem *MemoryStateDB) map[common.Address]struct{} {
	out := make(map[common.Address]struct{})
	for addr := range mem.exists {
		out[addr] = struct{}{}
	}
	for addr := range mem.balances {
		out[addr] = struct{}{}
	}
	for addr := range mem.codes {
		out[addr] = struct{}{}
	}
	for addr := range mem.storage {
		out[addr] = struct{}{}
	}
	return out
}
