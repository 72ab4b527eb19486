// Command foundryevm drives a single interposed call through the
// cheatcode-enabled EVM: it installs --code as the runtime bytecode of
// --target, executes --calldata against it as if sent by --caller, and
// prints whatever console.log lines and structured events the call
// produced.
//
// Usage:
//
//	foundryevm -code 6080... -calldata a9059cbb... [-ffi] [-value N] [-gas N]
package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hexonaut/foundry/cheats"
	"github.com/hexonaut/foundry/core/vm"
	"github.com/hexonaut/foundry/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	if cfg.LogFile != "" {
		log.SetDefault(log.NewWithFile(parseLevel(cfg.Verbosity), cfg.LogFile))
	} else {
		log.SetDefault(log.New(parseLevel(cfg.Verbosity)))
	}

	codeBytes, err := decodeHex(cfg.Code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --code: %v\n", err)
		return 1
	}
	calldata, err := decodeHex(cfg.Calldata)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --calldata: %v\n", err)
		return 1
	}

	caller := common.HexToAddress(cfg.Caller)
	target := common.HexToAddress(cfg.Target)

	var statedb vm.StateDB
	var persistent *vm.LevelDBStateDB
	if cfg.StateDir != "" {
		persistent, err = vm.NewLevelDBStateDB(cfg.StateDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening --statedir: %v\n", err)
			return 1
		}
		defer persistent.Close()
		statedb = persistent
	} else {
		statedb = vm.NewMemoryStateDB()
	}
	statedb.SetCode(target, codeBytes)
	statedb.AddBalance(caller, new(big.Int).SetUint64(^uint64(0)))

	blockCtx := vm.BlockContext{
		CanTransfer: func(db vm.StateDB, addr common.Address, amount *big.Int) bool {
			return db.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer: func(db vm.StateDB, from, to common.Address, amount *big.Int) {
			db.SubBalance(from, amount)
			db.AddBalance(to, amount)
		},
		GetHash:     func(uint64) common.Hash { return common.Hash{} },
		Coinbase:    common.Address{},
		GasLimit:    cfg.Gas,
		BlockNumber: big.NewInt(1),
		Time:        big.NewInt(1700000000),
		Difficulty:  big.NewInt(0),
		BaseFee:     big.NewInt(1_000_000_000),
	}
	txCtx := vm.TxContext{Origin: caller, GasPrice: big.NewInt(1)}

	evm := vm.NewEVM(blockCtx, txCtx, statedb, 31337, vm.Config{})
	executor := cheats.NewExecutor(evm, cfg.FFI)

	ret, leftOverGas, err := executor.Call(caller, target, calldata, cfg.Gas, new(big.Int).SetUint64(cfg.Value))

	fmt.Printf("return data: 0x%s\n", hex.EncodeToString(ret))
	fmt.Printf("gas used: %d\n", cfg.Gas-leftOverGas)
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}

	for _, line := range executor.Logs() {
		fmt.Println(line)
	}

	if persistent != nil {
		if ferr := persistent.Flush(); ferr != nil {
			fmt.Fprintf(os.Stderr, "flushing --statedir: %v\n", ferr)
			return 1
		}
	}

	if err != nil {
		return 1
	}
	return 0
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
