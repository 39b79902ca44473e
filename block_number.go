package ethcontract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type blockKind int

const (
	blockLatest blockKind = iota
	blockEarliest
	blockPending
	blockNumber
)

// BlockNumber is a block tag or a concrete block. The zero value is Latest.
type BlockNumber struct {
	kind blockKind
	n    uint64
}

var (
	Latest   = BlockNumber{kind: blockLatest}
	Earliest = BlockNumber{kind: blockEarliest}
	Pending  = BlockNumber{kind: blockPending}
)

// BlockNum is a concrete block number
func BlockNum(n uint64) BlockNumber {
	return BlockNumber{kind: blockNumber, n: n}
}

// Number returns the block number when the block is concrete
func (b BlockNumber) Number() (uint64, bool) {
	return b.n, b.kind == blockNumber
}

func (b BlockNumber) IsLatest() bool   { return b.kind == blockLatest }
func (b BlockNumber) IsEarliest() bool { return b.kind == blockEarliest }
func (b BlockNumber) IsPending() bool  { return b.kind == blockPending }

func (b BlockNumber) String() string {
	switch b.kind {
	case blockEarliest:
		return "earliest"
	case blockPending:
		return "pending"
	case blockNumber:
		return hexutil.EncodeUint64(b.n)
	}
	return "latest"
}

func (b BlockNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BlockNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint64
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return fmt.Errorf("invalid block number %s", string(data))
		}
		*b = BlockNum(n)
		return nil
	}
	switch strings.ToLower(s) {
	case "latest":
		*b = Latest
	case "earliest":
		*b = Earliest
	case "pending":
		*b = Pending
	default:
		n, err := hexutil.DecodeUint64(s)
		if err != nil {
			return fmt.Errorf("invalid block number %q: %w", s, err)
		}
		*b = BlockNum(n)
	}
	return nil
}
