package artifact

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	placeholderLen = 40
	// maxLibraryNameLen leaves "__" on both sides of a name-padded placeholder
	maxLibraryNameLen = placeholderLen - 4
)

// Bytecode is contract bytecode that may still contain library placeholders. Two placeholder
// styles are understood: the name padded with underscores (`__Name_____...`) and the hashed form
// `__$<34 hex digits of keccak256(name)>$__`.
type Bytecode struct {
	code string
}

// NewBytecode parses hex bytecode with an optional 0x prefix
func NewBytecode(s string) (Bytecode, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s)%2 != 0 {
		return Bytecode{}, &BytecodeError{Kind: InvalidLength}
	}
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "__") {
			if i+placeholderLen > len(s) {
				return Bytecode{}, &BytecodeError{Kind: PlaceholderTooShort}
			}
			i += placeholderLen
			continue
		}
		if !isHexDigit(s[i]) {
			return Bytecode{}, &BytecodeError{Kind: InvalidHexDigit, Detail: string(s[i])}
		}
		i++
	}
	return Bytecode{code: s}, nil
}

// MustBytecode is NewBytecode for literals, panics on malformed input
func MustBytecode(s string) Bytecode {
	b, err := NewBytecode(s)
	if err != nil {
		panic(err)
	}
	return b
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// placeholders returns the marker names for a library, the name-padded one first
func placeholders(name string) ([]string, error) {
	if len(name) > maxLibraryNameLen {
		return nil, &BytecodeError{Kind: LinkNameTooLong, Detail: name}
	}
	padded := "__" + name + strings.Repeat("_", maxLibraryNameLen-len(name))
	hash := hex.EncodeToString(crypto.Keccak256([]byte(name)))[:34]
	return []string{padded, "__$" + hash + "$__"}, nil
}

// hashedPlaceholder also serves fully qualified names (path.sol:Name) too long to pad
func hashedPlaceholder(name string) string {
	return "__$" + hex.EncodeToString(crypto.Keccak256([]byte(name)))[:34] + "$__"
}

func (b Bytecode) IsEmpty() bool {
	return len(b.code) == 0
}

// Contains reports whether the bytecode has a placeholder for the library
func (b Bytecode) Contains(name string) bool {
	markers, err := placeholders(name)
	if err != nil {
		markers = []string{hashedPlaceholder(name)}
	}
	for _, m := range markers {
		if strings.Contains(b.code, m) {
			return true
		}
	}
	return false
}

// Link replaces every placeholder of the library with its address. Linking a library that has
// no placeholder left is a no-op, so linking is idempotent.
func (b *Bytecode) Link(name string, address common.Address) error {
	markers, err := placeholders(name)
	if err != nil {
		if !strings.Contains(b.code, hashedPlaceholder(name)) {
			return err
		}
		markers = []string{hashedPlaceholder(name)}
	}
	addr := hex.EncodeToString(address.Bytes())
	for _, m := range markers {
		b.code = strings.ReplaceAll(b.code, m, addr)
	}
	return nil
}

// UndefinedLibraries lists the remaining placeholders in order of first appearance. Name-padded
// placeholders yield the library name, hashed ones the `$<hash>$` marker.
func (b Bytecode) UndefinedLibraries() []string {
	var out []string
	seen := make(map[string]bool)
	for i := 0; i+placeholderLen <= len(b.code); {
		if !strings.HasPrefix(b.code[i:], "__") {
			i += 2
			continue
		}
		region := b.code[i : i+placeholderLen]
		name := strings.Trim(region, "_")
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		i += placeholderLen
	}
	return out
}

// ToBytes returns the final bytecode, failing while placeholders remain
func (b Bytecode) ToBytes() ([]byte, error) {
	if libs := b.UndefinedLibraries(); len(libs) > 0 {
		return nil, &BytecodeError{Kind: LinkRequired, Libraries: libs}
	}
	out, err := hex.DecodeString(b.code)
	if err != nil {
		return nil, &BytecodeError{Kind: InvalidHexDigit, Detail: err.Error()}
	}
	return out, nil
}

// Hex returns the 0x-prefixed bytecode including any placeholders
func (b Bytecode) Hex() string {
	return "0x" + b.code
}

func (b Bytecode) String() string {
	return b.Hex()
}

func (b Bytecode) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Hex())
}

func (b *Bytecode) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Bytecode{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// hardhat-style {"object": "0x..."} bytecode objects
		var obj struct {
			Object string `json:"object"`
		}
		if objErr := json.Unmarshal(data, &obj); objErr != nil {
			return fmt.Errorf("bytecode must be a hex string: %w", err)
		}
		s = obj.Object
	}
	parsed, err := NewBytecode(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
