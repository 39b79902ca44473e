package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// ABI is a parsed contract interface that remembers the declaration order of its entries,
// which go-ethereum's maps lose.
type ABI struct {
	abi.ABI

	functions []string
	events    []string
	errs      []string
	raw       json.RawMessage
}

type abiEntry struct {
	Type   string                    `json:"type"`
	Name   string                    `json:"name"`
	Inputs []abi.ArgumentMarshaling `json:"inputs"`
}

// ParseABI parses a JSON ABI array
func ParseABI(data []byte) (*ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, ErrParseABI)
	}
	var entries []abiEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, ErrParseABI)
	}
	a := &ABI{ABI: parsed, raw: append(json.RawMessage(nil), data...)}

	methodsBySig := make(map[string]bool, len(parsed.Methods))
	for _, m := range parsed.Methods {
		methodsBySig[m.Sig] = true
	}
	eventsBySig := make(map[string]bool, len(parsed.Events))
	for _, e := range parsed.Events {
		eventsBySig[e.Sig] = true
	}
	errorsBySig := make(map[string]bool, len(parsed.Errors))
	for _, e := range parsed.Errors {
		errorsBySig[e.Sig] = true
	}

	for _, entry := range entries {
		var known map[string]bool
		var order *[]string
		switch entry.Type {
		case "function", "":
			known, order = methodsBySig, &a.functions
		case "event":
			known, order = eventsBySig, &a.events
		case "error":
			known, order = errorsBySig, &a.errs
		default:
			continue
		}
		sig, err := entrySignature(entry)
		if err != nil {
			return nil, errors.Wrap(err, ErrParseABI)
		}
		if !known[sig] {
			return nil, errors.Wrap(fmt.Errorf("%s", sig), ErrUnknownABISignature)
		}
		*order = append(*order, sig)
	}
	return a, nil
}

func entrySignature(entry abiEntry) (string, error) {
	types := make([]string, len(entry.Inputs))
	for i, in := range entry.Inputs {
		t, err := abi.NewType(in.Type, in.InternalType, in.Components)
		if err != nil {
			return "", err
		}
		types[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", entry.Name, strings.Join(types, ",")), nil
}

// Functions returns every function in declaration order
func (a *ABI) Functions() []abi.Method {
	out := make([]abi.Method, 0, len(a.functions))
	for _, sig := range a.functions {
		m, _ := a.FunctionBySignature(sig)
		out = append(out, m)
	}
	return out
}

// Events returns every event in declaration order
func (a *ABI) Events() []abi.Event {
	out := make([]abi.Event, 0, len(a.events))
	for _, sig := range a.events {
		e, _ := a.EventBySignature(sig)
		out = append(out, e)
	}
	return out
}

// CustomErrors returns every custom error in declaration order
func (a *ABI) CustomErrors() []abi.Error {
	out := make([]abi.Error, 0, len(a.errs))
	for _, sig := range a.errs {
		for _, e := range a.ABI.Errors {
			if e.Sig == sig {
				out = append(out, e)
			}
		}
	}
	return out
}

// Overloads returns the functions sharing the raw name, in declaration order. The position in
// the returned slice is the overload index.
func (a *ABI) Overloads(name string) []abi.Method {
	var out []abi.Method
	for _, m := range a.Functions() {
		if m.RawName == name {
			out = append(out, m)
		}
	}
	return out
}

// EventOverloads is Overloads for events
func (a *ABI) EventOverloads(name string) []abi.Event {
	var out []abi.Event
	for _, e := range a.Events() {
		if e.RawName == name {
			out = append(out, e)
		}
	}
	return out
}

func (a *ABI) FunctionBySignature(sig string) (abi.Method, bool) {
	for _, m := range a.Methods {
		if m.Sig == sig {
			return m, true
		}
	}
	return abi.Method{}, false
}

func (a *ABI) EventBySignature(sig string) (abi.Event, bool) {
	for _, e := range a.ABI.Events {
		if e.Sig == sig {
			return e, true
		}
	}
	return abi.Event{}, false
}

// HasConstructor reports whether the ABI declares a constructor
func (a *ABI) HasConstructor() bool {
	return a.Constructor.Type == abi.Constructor
}

// HasFallback also accepts a receive entry, both make plain value transfers and unknown
// selectors callable
func (a *ABI) HasFallback() bool {
	return a.ABI.HasFallback() || a.ABI.HasReceive()
}

// Raw returns the JSON the ABI was parsed from
func (a *ABI) Raw() json.RawMessage {
	return a.raw
}

func (a *ABI) MarshalJSON() ([]byte, error) {
	if len(a.raw) == 0 {
		return []byte("[]"), nil
	}
	return a.raw, nil
}

func (a *ABI) UnmarshalJSON(data []byte) error {
	parsed, err := ParseABI(data)
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}
