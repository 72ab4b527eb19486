// Package cheats wraps the core/vm EVM with Foundry-style cheatcode
// interception: calls to two reserved addresses are diverted to a Go
// implementation of the cheatcode ABI and to console.log capture, while
// every other call and create falls through to the ordinary EVM call
// path unmodified.
package cheats

import "github.com/ethereum/go-ethereum/common"

// CheatcodeAddress is the address calls must target to invoke a
// cheatcode, vm.CHEATCODE_ADDRESS in Forge's own vocabulary.
var CheatcodeAddress = common.HexToAddress("0x7109709ECfa91a80626fF3989D68f67F5b1DD12D")

// ConsoleAddress is the address hardhat's console.sol library targets
// for console.log calls.
var ConsoleAddress = common.HexToAddress("0x000000000000000000636F6e736F6c652e6c6f67")

// dummyOutputSize is the length of the placeholder return data substituted
// for a call whose revert matched an expectRevert payload: 32 bytes of
// offset, 32 of length, and 256 bytes of zeroed payload, wide enough that
// any fixed-size ABI return type decodes to its zero value instead of
// reverting.
const dummyOutputSize = 320

// dummyOutput is returned in place of a real return value whenever
// expectRevert converts a matched revert into a synthetic success.
var dummyOutput = make([]byte, dummyOutputSize)
