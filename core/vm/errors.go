package vm

import "errors"

// Sentinel errors returned by the interpreter and the call/create entry
// points. Callers should compare with errors.Is rather than switching on
// error strings.
var (
	ErrOutOfGas              = errors.New("out of gas")
	ErrStackOverflow         = errors.New("stack overflow")
	ErrStackUnderflow        = errors.New("stack underflow")
	ErrInvalidJump           = errors.New("invalid jump destination")
	ErrWriteProtection       = errors.New("write protection")
	ErrExecutionReverted     = errors.New("execution reverted")
	ErrDepth                 = errors.New("max call depth exceeded")
	ErrInvalidOpCode         = errors.New("invalid opcode")
	ErrInsufficientBalance   = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrMaxCodeSizeExceeded   = errors.New("max code size exceeded")
	ErrInvalidCode           = errors.New("invalid code: must not begin with 0xef")
	ErrCodeStoreOutOfGas     = errors.New("contract creation code storage out of gas")
	ErrNonceUintOverflow     = errors.New("nonce uint64 overflow")
	ErrReturnDataOutOfBounds = errors.New("return data out of bounds")
)
