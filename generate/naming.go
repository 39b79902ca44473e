package generate

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// reserved are the accessors every generated contract type carries
var reserved = map[string]bool{
	"Address":    true,
	"Instance":   true,
	"Events":     true,
	"AllEvents":  true,
	"Signatures": true,
	"Fallback":   true,
}

// paramReserved are identifiers the generated method bodies use
var paramReserved = map[string]bool{
	"c": true, "e": true, "t": true, "ctx": true, "libraries": true,
	"abi": true, "artifact": true, "big": true, "common": true, "context": true,
	"ethcontract": true, "int256": true, "sync": true, "transport": true,
}

func capitalise(s string) string {
	return abi.ToCamelCase(s)
}

func decapitalise(s string) string {
	s = capitalise(s)
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// packageName is the lower-case, underscore-free form of a contract name
func packageName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

type namedEntry struct {
	sig     string
	abiName string
	alias   string
}

// resolveNames names ABI entries in declaration order. An alias wins, otherwise the
// capitalised ABI name is used. Unaliased entries sharing a name with each other or with an
// alias all get their index in the colliding group appended.
func resolveNames(entries []namedEntry) ([]string, error) {
	names := make([]string, len(entries))
	groups := make(map[string][]int)
	aliased := make(map[string]bool)
	for i, e := range entries {
		if e.alias != "" {
			if !token.IsIdentifier(e.alias) {
				return nil, errors.Errorf("%s '%s' for %s", ErrInvalidAlias, e.alias, e.sig)
			}
			names[i] = capitalise(e.alias)
			aliased[names[i]] = true
			continue
		}
		names[i] = capitalise(e.abiName)
		groups[names[i]] = append(groups[names[i]], i)
	}
	for name, members := range groups {
		if len(members) < 2 && !aliased[name] {
			continue
		}
		for n, i := range members {
			names[i] = fmt.Sprintf("%s%d", name, n)
		}
		L.Debug().Str("Name", name).Int("Overloads", len(members)).Msg("De-conflicted overloaded entries")
	}

	seen := make(map[string]int, len(names))
	for i, name := range names {
		j, ok := seen[name]
		if !ok {
			seen[name] = i
			continue
		}
		if entries[i].alias != "" && entries[j].alias != "" {
			return nil, errors.Errorf("%s '%s': %s and %s", ErrDuplicateAlias, name, entries[j].sig, entries[i].sig)
		}
		return nil, errors.Errorf("%s '%s': %s and %s", ErrNameCollision, name, entries[j].sig, entries[i].sig)
	}
	return names, nil
}

// paramNames names the arguments of a generated function, unnamed ones become argN
func paramNames(raw []string) []string {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, r := range raw {
		name := decapitalise(r)
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		if token.IsKeyword(name) || paramReserved[name] {
			name += "_"
		}
		for used[name] {
			name = fmt.Sprintf("%s%d", name, i)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// fieldNames names struct fields, unnamed ones get prefix and their index
func fieldNames(raw []string, prefix string) []string {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, r := range raw {
		name := capitalise(r)
		if name == "" || !token.IsExported(name) {
			name = fmt.Sprintf("%s%d", prefix, i)
		}
		for used[name] {
			name = fmt.Sprintf("%s%d", name, i)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
