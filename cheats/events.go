package cheats

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hexonaut/foundry/core/vm"
)

// dsTestEvent describes one of the DSTest-style logging events a test
// contract may emit via LOG1 with this event's topic0: its decoded
// argument types and a renderer that turns the unpacked values into the
// single-line form Forge itself prints for that event.
type dsTestEvent struct {
	types  []abi.Type
	render func(vals []interface{}) string
}

var dsTestEvents = map[common.Hash]dsTestEvent{}

func registerEvent(sig string, typeNames []string, render func([]interface{}) string) {
	args := make(abi.Arguments, len(typeNames))
	for i, t := range typeNames {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		args[i] = abi.Argument{Type: typ}
	}
	topic := crypto.Keccak256Hash([]byte(sig))
	dsTestEvents[topic] = dsTestEvent{types: typeFromArgs(args), render: render}
}

func typeFromArgs(args abi.Arguments) []abi.Type {
	out := make([]abi.Type, len(args))
	for i, a := range args {
		out[i] = a.Type
	}
	return out
}

func hexPrefixed(b []byte) string {
	return "0x" + common.Bytes2Hex(b)
}

func init() {
	registerEvent("log(string)", []string{"string"}, func(v []interface{}) string {
		return v[0].(string)
	})
	registerEvent("log_bytes(bytes)", []string{"bytes"}, func(v []interface{}) string {
		return hexPrefixed(v[0].([]byte))
	})
	registerEvent("log_address(address)", []string{"address"}, func(v []interface{}) string {
		return v[0].(common.Address).Hex()
	})
	registerEvent("log_bytes32(bytes32)", []string{"bytes32"}, func(v []interface{}) string {
		b := v[0].([32]byte)
		return hexPrefixed(b[:])
	})
	registerEvent("log_int(int256)", []string{"int256"}, func(v []interface{}) string {
		return v[0].(*big.Int).String()
	})
	registerEvent("log_uint(uint256)", []string{"uint256"}, func(v []interface{}) string {
		return v[0].(*big.Int).String()
	})

	registerEvent("log_named_address(string,address)", []string{"string", "address"}, func(v []interface{}) string {
		return fmt.Sprintf("%s: %s", v[0].(string), v[1].(common.Address).Hex())
	})
	registerEvent("log_named_bytes32(string,bytes32)", []string{"string", "bytes32"}, func(v []interface{}) string {
		b := v[1].([32]byte)
		return fmt.Sprintf("%s: %s", v[0].(string), hexPrefixed(b[:]))
	})
	registerEvent("log_named_bytes(string,bytes)", []string{"string", "bytes"}, func(v []interface{}) string {
		return fmt.Sprintf("%s: %s", v[0].(string), hexPrefixed(v[1].([]byte)))
	})
	registerEvent("log_named_string(string,string)", []string{"string", "string"}, func(v []interface{}) string {
		return fmt.Sprintf("%s: %s", v[0].(string), v[1].(string))
	})
	registerEvent("log_named_int(string,int256)", []string{"string", "int256"}, func(v []interface{}) string {
		return fmt.Sprintf("%s: %s", v[0].(string), v[1].(*big.Int).String())
	})
	registerEvent("log_named_uint(string,uint256)", []string{"string", "uint256"}, func(v []interface{}) string {
		return fmt.Sprintf("%s: %s", v[0].(string), v[1].(*big.Int).String())
	})
	registerEvent("log_named_decimal_int(string,int256,uint256)", []string{"string", "int256", "uint256"}, func(v []interface{}) string {
		return fmt.Sprintf("%s: %s", v[0].(string), scaleDecimal(v[1].(*big.Int), v[2].(*big.Int)))
	})
	registerEvent("log_named_decimal_uint(string,uint256,uint256)", []string{"string", "uint256", "uint256"}, func(v []interface{}) string {
		return fmt.Sprintf("%s: %s", v[0].(string), scaleDecimal(v[1].(*big.Int), v[2].(*big.Int)))
	})
}

// scaleDecimal renders value scaled up by 10^decimals, the way Forge's own
// log_named_decimal_* cheatcodes present a raw fixed-point integer
// alongside the decimals() value it is denominated in.
func scaleDecimal(value, decimals *big.Int) string {
	scale := new(big.Int).Exp(big.NewInt(10), decimals, nil)
	return new(big.Int).Mul(value, scale).String()
}

// renderLog renders a single emitted event if its topic0 matches a known
// DSTest logging signature, reporting ok=false for anything else (events
// the collector silently drops from the combined stream, per the
// structured-log filter in the component design).
func renderLog(l *vm.Log) (string, bool) {
	if len(l.Topics) == 0 {
		return "", false
	}
	ev, ok := dsTestEvents[l.Topics[0]]
	if !ok {
		return "", false
	}
	args := make(abi.Arguments, len(ev.types))
	for i, t := range ev.types {
		args[i] = abi.Argument{Type: t}
	}
	vals, err := args.Unpack(l.Data)
	if err != nil {
		return "", false
	}
	return ev.render(vals), true
}
