package main

import "flag"

// runConfig holds the resolved command-line configuration for one
// interposed execution.
type runConfig struct {
	Code      string
	Calldata  string
	Caller    string
	Target    string
	Value     uint64
	Gas       uint64
	FFI       bool
	Verbosity string
	LogFile   string
	StateDir  string
}

// parseFlags parses args (excluding the program name) into a runConfig.
// exit reports whether the caller should stop immediately (e.g. -h was
// given), with code as the process exit status in that case.
func parseFlags(args []string) (cfg runConfig, exit bool, code int) {
	fs := flag.NewFlagSet("foundryevm", flag.ContinueOnError)

	fs.StringVar(&cfg.Code, "code", "", "hex-encoded runtime bytecode to execute at --target")
	fs.StringVar(&cfg.Calldata, "calldata", "", "hex-encoded calldata for the top-level call")
	fs.StringVar(&cfg.Caller, "caller", "0x0000000000000000000000000000000000000001", "address the top-level call appears to originate from")
	fs.StringVar(&cfg.Target, "target", "0x0000000000000000000000000000000000000002", "address the runtime bytecode is installed at")
	fs.Uint64Var(&cfg.Value, "value", 0, "wei value attached to the top-level call")
	fs.Uint64Var(&cfg.Gas, "gas", 30_000_000, "gas forwarded to the top-level call")
	fs.BoolVar(&cfg.FFI, "ffi", false, "allow the ffi cheatcode to spawn external processes")
	fs.StringVar(&cfg.Verbosity, "verbosity", "info", "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFile, "logfile", "", "path to a rotating log file; empty disables file logging")
	fs.StringVar(&cfg.StateDir, "statedir", "", "directory holding a persistent leveldb account view; empty uses a fresh in-memory one")

	if err := fs.Parse(args); err != nil {
		return cfg, true, 2
	}
	return cfg, false, 0
}
