package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// CreateKind distinguishes CREATE from CREATE2 for address derivation.
type CreateKind int

const (
	CreateKindCreate CreateKind = iota
	CreateKindCreate2
)

// Create deploys initCode as a new contract owned by caller, using the
// sender/nonce address scheme.
func (evm *EVM) Create(caller common.Address, initCode []byte, gas uint64, value *big.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	nonce := evm.StateDB.GetNonce(caller)
	contractAddr = crypto.CreateAddress(caller, nonce)
	return evm.create(caller, initCode, gas, value, contractAddr, CreateKindCreate)
}

// Create2 deploys initCode at an address derived from caller, salt, and
// the hash of initCode, so the address is known before deployment.
func (evm *EVM) Create2(caller common.Address, initCode []byte, gas uint64, value *big.Int, salt *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	codeHash := crypto.Keccak256(initCode)
	contractAddr = crypto.CreateAddress2(caller, salt.Bytes32(), codeHash)
	return evm.create(caller, initCode, gas, value, contractAddr, CreateKindCreate2)
}

// create is the faithful shared implementation behind CREATE and CREATE2:
// depth and size checks, collision detection, substate snapshot, value
// transfer, nonce bump, and EIP-3541/EIP-170 validation of the deployed
// code before it is committed to the state trie. The init code runs with
// gas exactly as given; opCreate/opCreate2 apply the 63/64 split before
// calling in.
func (evm *EVM) create(caller common.Address, initCode []byte, gas uint64, value *big.Int, addr common.Address, kind CreateKind) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	contractAddr = addr

	if evm.depth > evm.Config.MaxCallDepth {
		return nil, contractAddr, gas, ErrDepth
	}
	if len(initCode) > MaxInitCodeSize {
		return nil, contractAddr, gas, ErrMaxCodeSizeExceeded
	}
	if valueTransfer(value) && !evm.Context.CanTransfer(evm.StateDB, caller, value) {
		return nil, contractAddr, gas, ErrInsufficientBalance
	}
	if evm.readOnly {
		return nil, contractAddr, gas, ErrWriteProtection
	}

	nonce := evm.StateDB.GetNonce(caller)
	if nonce+1 < nonce {
		return nil, contractAddr, gas, ErrNonceUintOverflow
	}
	evm.StateDB.SetNonce(caller, nonce+1)

	if evm.StateDB.GetNonce(contractAddr) != 0 || (evm.StateDB.GetCodeHash(contractAddr) != (common.Hash{}) && len(evm.StateDB.GetCode(contractAddr)) != 0) {
		return nil, contractAddr, gas, ErrContractAddressCollision
	}

	snapshot := evm.StateDB.Snapshot()

	evm.StateDB.CreateAccount(contractAddr)
	evm.StateDB.SetNonce(contractAddr, 1)
	if valueTransfer(value) {
		evm.Context.Transfer(evm.StateDB, caller, contractAddr, value)
	}

	contract := NewContract(caller, contractAddr, bigToUint256(value), gas)
	contract.Code = initCode

	evm.depth++
	interp := NewInterpreter(evm)
	ret, err = interp.Run(contract, nil, false)
	evm.depth--

	if err == nil {
		if len(ret) > 0 && ret[0] == 0xef {
			err = ErrInvalidCode
		} else if len(ret) > MaxCodeSize {
			err = ErrMaxCodeSizeExceeded
		}
	}
	if err == nil {
		depositCost := uint64(len(ret)) * 200
		if !contract.UseGas(depositCost) {
			err = ErrCodeStoreOutOfGas
		} else {
			evm.StateDB.SetCode(contractAddr, ret)
		}
	}

	leftOverGas = contract.Gas
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
		return ret, contractAddr, leftOverGas, err
	}
	return ret, contractAddr, leftOverGas, nil
}
