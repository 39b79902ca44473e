package ethcontract

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AccountOverride replaces parts of an account's state for the duration of an eth_call.
// Code is applied when non-nil, so an empty slice clears the code. State replaces the whole
// storage when non-nil, StateDiff only the listed slots.
type AccountOverride struct {
	Nonce     uint64
	Code      []byte
	Balance   *big.Int
	State     map[common.Hash]common.Hash
	StateDiff map[common.Hash]common.Hash
}

func (a AccountOverride) MarshalJSON() ([]byte, error) {
	type override struct {
		Nonce     hexutil.Uint64              `json:"nonce,omitempty"`
		Code      *hexutil.Bytes              `json:"code,omitempty"`
		Balance   *hexutil.Big                `json:"balance,omitempty"`
		State     map[common.Hash]common.Hash `json:"state,omitempty"`
		StateDiff map[common.Hash]common.Hash `json:"stateDiff,omitempty"`
	}
	out := override{
		Nonce:     hexutil.Uint64(a.Nonce),
		Balance:   (*hexutil.Big)(a.Balance),
		StateDiff: a.StateDiff,
	}
	if a.Code != nil {
		code := hexutil.Bytes(a.Code)
		out.Code = &code
	}
	if a.State != nil {
		out.State = a.State
	}
	return json.Marshal(out)
}

// StateOverrides is the optional third eth_call parameter, keyed by account
type StateOverrides map[common.Address]AccountOverride

// callParams returns the eth_call parameters, overrides are only sent when present
func callParams(req CallRequest, block BlockNumber, overrides StateOverrides) []any {
	if len(overrides) == 0 {
		return []any{req, block}
	}
	return []any{req, block, overrides}
}
