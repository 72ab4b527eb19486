package cheats

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// ecdsaPrivateKey is the concrete type addr and sign derive their key
// material into; aliased so cheatcodes.go need not import crypto/ecdsa
// directly.
type ecdsaPrivateKey = ecdsa.PrivateKey

// toECDSA left-pads sk to 32 bytes and parses it as a secp256k1 scalar,
// the same representation Forge's own uint256 private keys use.
func toECDSA(sk *big.Int) (*ecdsaPrivateKey, error) {
	buf := make([]byte, 32)
	sk.FillBytes(buf)
	return crypto.ToECDSA(buf)
}
