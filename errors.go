package ethcontract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/transport"
)

const (
	ErrDroppedBatch      = "Batch has been dropped without executing"
	ErrBatchFailed       = "Batch failed with"
	ErrBatchMissingSlot  = "Batch result did not contain enough responses"
	ErrInvalidBlockRange = "block range and block hash are mutually exclusive"
	ErrZeroPageSize      = "block page size must be greater than zero"
	ErrNoFallback        = "contract ABI does not declare a fallback function"
	ErrNoContractAddress = "receipt of the deployment transaction has no contract address"
	ErrPendingLibraries  = "libraries can not be deployed without waiting for their receipts"
)

type ExecutionErrorKind int

const (
	// TransportFailure is a failed JSON-RPC request that is not a recognized revert
	TransportFailure ExecutionErrorKind = iota
	AbiDecodeFailure
	ParseFailure
	NoLocalAccounts
	Revert
	InvalidOpcode
	ConfirmTimeout
	Failure
	PendingTransaction
	MissingTransaction
	RemovedLog
	UnexpectedTransactionHash
)

// ExecutionError is the error of every operation that talks to the node
type ExecutionError struct {
	Kind ExecutionErrorKind
	// Reason is the revert message, nil when the node gave none
	Reason *string
	// Receipt is set for Failure and for ConfirmTimeout once the transaction was mined
	Receipt *types.Receipt
	// Hash is the transaction the error is about, for UnexpectedTransactionHash it is the hash
	// returned by the node
	Hash     common.Hash
	Expected common.Hash
	Err      error
}

func (e *ExecutionError) Error() string {
	switch e.Kind {
	case TransportFailure:
		return fmt.Sprintf("transport error: %s", e.Err)
	case AbiDecodeFailure:
		return fmt.Sprintf("abi decode error: %s", e.Err)
	case ParseFailure:
		return fmt.Sprintf("parse error: %s", e.Err)
	case NoLocalAccounts:
		return "no local accounts"
	case Revert:
		if e.Reason == nil {
			return "contract call reverted"
		}
		return fmt.Sprintf("contract call reverted with message: %q", *e.Reason)
	case InvalidOpcode:
		return "contract call executed an invalid opcode"
	case ConfirmTimeout:
		if e.Receipt != nil {
			return fmt.Sprintf("transaction confirmation timed-out, mined in block %s", e.Receipt.BlockNumber)
		}
		return fmt.Sprintf("transaction confirmation timed-out, %s not mined", e.Hash.Hex())
	case Failure:
		return fmt.Sprintf("transaction failed: %s", e.Hash.Hex())
	case PendingTransaction:
		return fmt.Sprintf("transaction %s is still pending", e.Hash.Hex())
	case MissingTransaction:
		return fmt.Sprintf("transaction %s was not found", e.Hash.Hex())
	case RemovedLog:
		return "log was removed from the chain"
	case UnexpectedTransactionHash:
		return fmt.Sprintf("node returned transaction hash %s, expected %s", e.Hash.Hex(), e.Expected.Hex())
	}
	return "execution error"
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// RevertReason returns the revert message for Revert errors
func (e *ExecutionError) RevertReason() (string, bool) {
	if e.Kind != Revert || e.Reason == nil {
		return "", false
	}
	return *e.Reason, true
}

func revertError(reason *string) *ExecutionError {
	return &ExecutionError{Kind: Revert, Reason: reason}
}

// ToExecutionError classifies an error returned by a transport. Node errors that carry a
// revert are decoded into Revert or InvalidOpcode.
func ToExecutionError(err error) error {
	if err == nil {
		return nil
	}
	var exec *ExecutionError
	if errors.As(err, &exec) {
		return err
	}
	var abiErr *AbiError
	if errors.As(err, &abiErr) {
		return &ExecutionError{Kind: AbiDecodeFailure, Err: err}
	}
	var rpcErr *transport.RPCError
	if errors.As(err, &rpcErr) {
		if decoded := DecodeRPCError(rpcErr); decoded != nil {
			return decoded
		}
	}
	return &ExecutionError{Kind: TransportFailure, Err: err}
}

// MethodError annotates an ExecutionError with the function signature
type MethodError struct {
	Signature string
	Err       error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("method '%s' failure: %s", e.Signature, e.Err)
}

func (e *MethodError) Unwrap() error { return e.Err }

func methodError(sig string, err error) error {
	if err == nil {
		return nil
	}
	return &MethodError{Signature: sig, Err: ToExecutionError(err)}
}

// EventError annotates an ExecutionError with the event signature
type EventError struct {
	Signature string
	Err       error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event '%s' failure: %s", e.Signature, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

func eventError(sig string, err error) error {
	if err == nil {
		return nil
	}
	return &EventError{Signature: sig, Err: ToExecutionError(err)}
}

type DeployErrorKind int

const (
	DeployTransport DeployErrorKind = iota
	DeploymentNotFound
	DeployLink
	EmptyBytecode
	DeployAbi
	DeployTx
	DeployPending
)

type DeployError struct {
	Kind DeployErrorKind
	// Network is the chain id a deployment was looked up for
	Network string
	Hash    common.Hash
	Err     error
}

func (e *DeployError) Error() string {
	switch e.Kind {
	case DeployTransport:
		return fmt.Sprintf("transport error: %s", e.Err)
	case DeploymentNotFound:
		return fmt.Sprintf("could not find deployed contract for network %s", e.Network)
	case DeployLink:
		return fmt.Sprintf("could not link library: %s", e.Err)
	case EmptyBytecode:
		return "can not deploy contract with empty bytecode"
	case DeployAbi:
		return fmt.Sprintf("error ABI encoding deployment parameters: %s", e.Err)
	case DeployTx:
		return fmt.Sprintf("error executing contract deployment transaction: %s", e.Err)
	case DeployPending:
		return fmt.Sprintf("contract deployment transaction pending: %s", e.Hash.Hex())
	}
	return "deploy error"
}

func (e *DeployError) Unwrap() error { return e.Err }

type AbiErrorKind int

const (
	InvalidName AbiErrorKind = iota
	InvalidData
	HexDecode
)

// AbiError is an encoding failure or a lookup of a function or event the ABI does not have
type AbiError struct {
	Kind   AbiErrorKind
	Detail string
	Err    error
}

func (e *AbiError) Error() string {
	var msg string
	switch e.Kind {
	case InvalidName:
		msg = fmt.Sprintf("invalid name: %s", e.Detail)
	case InvalidData:
		msg = "invalid data"
		if e.Detail != "" {
			msg = fmt.Sprintf("invalid data: %s", e.Detail)
		}
	case HexDecode:
		msg = "hex decode failure"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *AbiError) Unwrap() error { return e.Err }

type SigningErrorKind int

const (
	InvalidPrivateKey SigningErrorKind = iota
	SignFailure
)

type SigningError struct {
	Kind SigningErrorKind
	Err  error
}

func (e *SigningError) Error() string {
	if e.Kind == InvalidPrivateKey {
		return "invalid private key"
	}
	return fmt.Sprintf("failed to sign transaction: %s", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }
