package vm

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrecompiledContract is a native contract dispatched by address instead
// of by bytecode. RequiredGas must be checked by the caller before Run is
// invoked, mirroring go-ethereum's convention.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// DefaultPrecompiles returns the small precompile set this interpreter
// dispatches to; the full Cancun set (modexp, bn256, blake2f, KZG
// point evaluation) is out of scope for a cheatcode interposer and is
// left to the embedding executor to extend if needed.
func DefaultPrecompiles() map[common.Address]PrecompiledContract {
	return map[common.Address]PrecompiledContract{
		common.BytesToAddress([]byte{1}): ecrecoverPrecompile{},
		common.BytesToAddress([]byte{2}): sha256Precompile{},
		common.BytesToAddress([]byte{4}): identityPrecompile{},
	}
}

type ecrecoverPrecompile struct{}

func (ecrecoverPrecompile) RequiredGas([]byte) uint64 { return 3000 }

func (ecrecoverPrecompile) Run(input []byte) ([]byte, error) {
	const inputLen = 128
	input = rightPadBytes(input, inputLen)

	v := input[63]
	if !allZero(input[32:63]) || (v != 27 && v != 28) {
		return nil, nil
	}

	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v - 27

	pub, err := crypto.SigToPub(input[:32], sig)
	if err != nil {
		return nil, nil
	}
	addr := crypto.PubkeyToAddress(*pub)
	return common.LeftPadBytes(addr.Bytes(), 32), nil
}

type sha256Precompile struct{}

func (sha256Precompile) RequiredGas(input []byte) uint64 {
	return 60 + 12*uint64((len(input)+31)/32)
}

func (sha256Precompile) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

type identityPrecompile struct{}

func (identityPrecompile) RequiredGas(input []byte) uint64 {
	return 15 + 3*uint64((len(input)+31)/32)
}

func (identityPrecompile) Run(input []byte) ([]byte, error) {
	return common.CopyBytes(input), nil
}

func rightPadBytes(b []byte, size int) []byte {
	if len(b) >= size {
		return b[:size]
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
