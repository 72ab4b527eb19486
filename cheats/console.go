package cheats

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// consoleSignature describes one console.log overload: the argument types
// go-ethereum's ABI package needs to decode it and their type names as
// written in the signature. consoleSignatures keys it by selector.
type consoleSignature struct {
	types []abi.Type
	names []string
}

var consoleSignatures = map[uint32]consoleSignature{}

func registerConsole(sig string, typeNames ...string) {
	types := make([]abi.Type, len(typeNames))
	for i, t := range typeNames {
		typ, err := abi.NewType(canonicalType(t), "", nil)
		if err != nil {
			panic(err)
		}
		types[i] = typ
	}
	id := consoleSelector(sig)
	consoleSignatures[id] = consoleSignature{types: types, names: typeNames}
	// Older console.sol builds computed the selector over the short-form
	// names (uint, int); register that selector too so both decode alike.
	legacy := binary.LittleEndian.Uint32(crypto.Keccak256([]byte(sig))[:4])
	consoleSignatures[legacy] = consoleSignature{types: types, names: typeNames}
}

// canonicalType rewrites hardhat console.sol's short-form type aliases
// (uint, int) to the canonical ABI names (uint256, int256) that the
// selector was actually computed from, mirroring the shim hardhat itself
// carries for backward compatibility with older console.sol selectors.
func canonicalType(t string) string {
	switch t {
	case "uint":
		return "uint256"
	case "int":
		return "int256"
	case "uint[]":
		return "uint256[]"
	case "int[]":
		return "int256[]"
	default:
		return t
	}
}

func consoleSelector(sig string) uint32 {
	method := abi.NewMethod("log", "log", abi.Function, "external", false, false, consoleMethodInputs(sig), nil)
	return binary.LittleEndian.Uint32(method.ID)
}

func consoleMethodInputs(sig string) abi.Arguments {
	inner := strings.TrimSuffix(strings.TrimPrefix(sig, "log("), ")")
	if inner == "" {
		return abi.Arguments{}
	}
	parts := strings.Split(inner, ",")
	args := make(abi.Arguments, len(parts))
	for i, p := range parts {
		typ, err := abi.NewType(canonicalType(p), "", nil)
		if err != nil {
			panic(err)
		}
		args[i] = abi.Argument{Type: typ}
	}
	return args
}

func init() {
	for _, sig := range []string{
		"log()",
		"log(string)",
		"log(int)",
		"log(uint)",
		"log(bool)",
		"log(address)",
		"log(bytes)",
		"log(bytes32)",
		"log(string,string)",
		"log(string,int)",
		"log(string,uint)",
		"log(string,bool)",
		"log(string,address)",
		"log(uint,uint)",
		"log(uint,string)",
		"log(uint,bool)",
		"log(uint,address)",
		"log(address,uint)",
		"log(address,address)",
		"log(address,string)",
		"log(address,bool)",
		"log(bool,uint)",
		"log(bool,address)",
		"log(bool,string)",
		"log(bool,bool)",
	} {
		parts := strings.TrimSuffix(strings.TrimPrefix(sig, "log("), ")")
		var names []string
		if parts != "" {
			names = strings.Split(parts, ",")
		}
		registerConsole(sig, names...)
	}
}

// handleConsoleLog decodes a console.log call's arguments and appends a
// formatted line to the executor's console log sink. Decode failure,
// whether from an unrecognized selector or from arguments that don't
// unpack against the matched signature, surfaces as a synthetic revert
// carrying the decoder's error message rather than being swallowed.
func (e *Executor) handleConsoleLog(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return abiEncodeString("console.log call data too short"), cheatError("console.log call data too short")
	}
	id := binary.LittleEndian.Uint32(input[:4])
	sig, ok := consoleSignatures[id]
	if !ok {
		msg := fmt.Sprintf("unknown console.log selector 0x%x", input[:4])
		return abiEncodeString(msg), cheatError(msg)
	}

	args := make(abi.Arguments, len(sig.types))
	for i, t := range sig.types {
		args[i] = abi.Argument{Type: t}
	}
	vals, err := args.Unpack(input[4:])
	if err != nil {
		return abiEncodeString(err.Error()), cheatError(err.Error())
	}

	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%v", v)
	}
	e.recordConsole(strings.Join(parts, ", "))
	return nil, nil
}
