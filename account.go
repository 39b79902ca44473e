package ethcontract

import (
	"crypto/ecdsa"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	ErrCastPublicKey = "error casting public key to ECDSA"
)

type accountKind int

const (
	localAccount accountKind = iota
	lockedAccount
	offlineAccount
)

// Account is the sender of a transaction. Local and locked accounts are signed by the node,
// offline accounts are signed with a key held by the caller.
type Account struct {
	kind      accountKind
	address   common.Address
	password  string
	key       *PrivateKey
	chainID   *uint64
	condition *TransactionCondition
}

// LocalAccount is an account unlocked on the node, condition is optional
func LocalAccount(address common.Address, condition *TransactionCondition) Account {
	return Account{kind: localAccount, address: address, condition: condition}
}

// LockedAccount is a node account that is unlocked with password to sign a single transaction,
// condition is optional
func LockedAccount(address common.Address, password string, condition *TransactionCondition) Account {
	return Account{kind: lockedAccount, address: address, password: password, condition: condition}
}

// OfflineAccount signs locally. When chainID is nil it is read from the node.
func OfflineAccount(key *PrivateKey, chainID *uint64) Account {
	return Account{kind: offlineAccount, address: key.Address(), key: key, chainID: chainID}
}

func (a Account) Address() common.Address {
	return a.address
}

func (a Account) IsOffline() bool {
	return a.kind == offlineAccount
}

// PrivateKey is a secp256k1 key used by offline accounts
type PrivateKey struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// ParsePrivateKey parses a hex encoded key, with or without 0x prefix
func ParsePrivateKey(s string) (*PrivateKey, error) {
	raw, err := hexutil.Decode("0x" + strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, &SigningError{Kind: InvalidPrivateKey, Err: err}
	}
	return NewPrivateKey(raw)
}

// NewPrivateKey creates a key from its 32 raw bytes
func NewPrivateKey(raw []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, &SigningError{Kind: InvalidPrivateKey, Err: err}
	}
	return fromECDSA(key)
}

// GeneratePrivateKey creates a new random key
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, &SigningError{Kind: InvalidPrivateKey, Err: err}
	}
	pk, err := fromECDSA(key)
	if err != nil {
		return nil, err
	}
	L.Info().
		Str("Addr", pk.Address().Hex()).
		Msg("New address created")
	return pk, nil
}

func fromECDSA(key *ecdsa.PrivateKey) (*PrivateKey, error) {
	publicKeyECDSA, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, &SigningError{Kind: InvalidPrivateKey, Err: errors.New(ErrCastPublicKey)}
	}
	return &PrivateKey{key: key, address: crypto.PubkeyToAddress(*publicKeyECDSA)}, nil
}

func (k *PrivateKey) Address() common.Address {
	return k.address
}

func (k *PrivateKey) ECDSA() *ecdsa.PrivateKey {
	return k.key
}

// Hex returns the key without 0x prefix, the format keys are stored in config files
func (k *PrivateKey) Hex() string {
	return hexutil.Encode(crypto.FromECDSA(k.key))[2:]
}

// TransactionCondition delays inclusion of a local account's transaction until a block or a
// unix timestamp is reached
type TransactionCondition struct {
	block *uint64
	time  *uint64
}

func BlockCondition(n uint64) *TransactionCondition {
	return &TransactionCondition{block: &n}
}

func TimeCondition(unix uint64) *TransactionCondition {
	return &TransactionCondition{time: &unix}
}

// MarshalJSON encodes an empty condition as null
func (c TransactionCondition) MarshalJSON() ([]byte, error) {
	switch {
	case c.block != nil:
		return json.Marshal(map[string]uint64{"block": *c.block})
	case c.time != nil:
		return json.Marshal(map[string]uint64{"time": *c.time})
	}
	return []byte("null"), nil
}
