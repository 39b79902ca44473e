// Package generate writes typed Go bindings for a contract artifact. The bindings call into
// the ethcontract runtime package.
package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/format"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/artifact"
	"github.com/smartcontractkit/ethcontract/internal/logging"
)

const (
	ErrDuplicateAlias      = "duplicate method alias"
	ErrNameCollision       = "generated names collide"
	ErrInvalidAlias        = "method alias is not a valid identifier"
	ErrUnknownAlias        = "method alias for a signature the contract does not have"
	ErrReservedName        = "generated name is reserved by the contract type"
	ErrUnsupportedType     = "unsupported ABI type"
	ErrUnnamedLibrary      = "library placeholder has no name, link it before generating"
	ErrInvalidPackage      = "invalid package name"
	ErrInvalidContractName = "contract name is not a valid identifier"
	ErrMissingABI          = "contract has no ABI"
	ErrExecuteTemplate     = "failed to execute bindings template"
	ErrFormatSource        = "failed to format generated source"
)

// DefaultRuntimeImport is the import path generated bindings use for the runtime
const DefaultRuntimeImport = "github.com/smartcontractkit/ethcontract"

var L = &logging.L

// Options control the generated bindings. The zero value generates an exported binding
// named after the contract into a package of the same name.
type Options struct {
	// Contract selects a contract of a multi-contract artifact, GenerateFile only
	Contract string
	// Format of the artifact file, GenerateFile only
	Format artifact.Format
	// Alias renames the generated contract type
	Alias string
	// Package defaults to the lower-cased contract name
	Package string
	// Deployments by chain id take precedence over those of the artifact
	Deployments map[string]common.Address
	// MethodAliases maps canonical signatures, e.g. "transfer(address,uint256)", to method names
	MethodAliases map[string]string
	// EventTags are struct tag keys added to every event field, e.g. "json"
	EventTags []string
	RuntimeImport string
	// Unexported emits the contract type and constructors unexported
	Unexported bool
}

// GenerateFile loads an artifact file and generates bindings for the selected contract
func GenerateFile(path string, opts Options) ([]byte, error) {
	a, err := artifact.Load(path, opts.Format)
	if err != nil {
		return nil, err
	}
	c, err := a.Select(opts.Contract)
	if err != nil {
		return nil, err
	}
	return Generate(c, opts)
}

// Generate returns the formatted source of the contract bindings
func Generate(contract *artifact.Contract, opts Options) ([]byte, error) {
	data, err := newTmplData(contract, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := bindingsTemplate.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(err, ErrExecuteTemplate)
	}
	code, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "%s\n%s", ErrFormatSource, buf.String())
	}
	L.Debug().
		Str("Contract", contract.Name).
		Str("Package", data.Package).
		Int("Methods", len(data.Methods)).
		Int("Events", len(data.Events)).
		Msg("Generated bindings")
	return code, nil
}

type tmplNames struct {
	Type              string
	New               string
	NewWithDeployment string
	Wrap              string
	Deploy            string
	Deployed          string
	Contract          string
	Signatures        string
	Events            string
	Event             string
	Marker            string
	Parse             string
}

type tmplData struct {
	Package  string
	Name     string
	Low      string
	Runtime  string
	Names    tmplNames
	ABI      string
	Bytecode string
	Doc      []string
	Networks []tmplNetwork
	Deployed bool
	Deploy   *tmplDeploy
	Methods  []tmplMethod
	Events   []tmplEvent
	Fallback bool
}

type tmplNetwork struct {
	ChainID         string
	Address         string
	TransactionHash string
	BlockNumber     string
}

type tmplParam struct {
	Name  string
	Field string
	Raw   string
	Type  string
}

type tmplDeploy struct {
	Libraries []tmplParam
	Params    []tmplParam
}

type tmplMethod struct {
	Name   string
	Sig    string
	Doc    []string
	Params []tmplParam
	Args   string
	Return string
	View   bool
}

type tmplField struct {
	Name string
	Type string
	Tag  string
}

type tmplEvent struct {
	Name      string
	Type      string
	Sig       string
	ID        string
	Anonymous bool
	Fields    []tmplField
}

func newTmplData(c *artifact.Contract, opts Options) (*tmplData, error) {
	if c.ABI == nil {
		return nil, errors.Errorf("%s: %s", ErrMissingABI, c.Name)
	}
	typeName := capitalise(c.Name)
	if opts.Alias != "" {
		typeName = capitalise(opts.Alias)
	}
	if !token.IsIdentifier(typeName) || !token.IsExported(typeName) {
		return nil, errors.Errorf("%s: '%s'", ErrInvalidContractName, typeName)
	}
	pkg := opts.Package
	if pkg == "" {
		pkg = packageName(typeName)
	}
	if !token.IsIdentifier(pkg) {
		return nil, errors.Errorf("%s: '%s'", ErrInvalidPackage, pkg)
	}
	runtime := opts.RuntimeImport
	if runtime == "" {
		runtime = DefaultRuntimeImport
	}
	abiJSON, err := compactABI(c.ABI.Raw())
	if err != nil {
		return nil, err
	}

	d := &tmplData{
		Package:  pkg,
		Name:     c.Name,
		Low:      strings.ToLower(typeName[:1]) + typeName[1:],
		Runtime:  runtime,
		Names:    names(typeName, opts.Unexported),
		ABI:      abiJSON,
		Bytecode: c.Bytecode.Hex(),
		Doc:      docLines(c.Devdoc.Details),
		Fallback: c.ABI.HasFallback(),
	}
	d.Networks = networks(c, opts.Deployments)
	d.Deployed = len(d.Networks) > 0
	if !c.Bytecode.IsEmpty() {
		if d.Deploy, err = deployment(c); err != nil {
			return nil, err
		}
	}
	if d.Methods, err = methods(c, opts.MethodAliases); err != nil {
		return nil, err
	}
	if d.Events, err = events(c, typeName, opts); err != nil {
		return nil, err
	}
	return d, nil
}

func names(typeName string, unexported bool) tmplNames {
	id := func(prefix, suffix string) string {
		n := prefix + typeName + suffix
		if unexported {
			n = strings.ToLower(n[:1]) + n[1:]
		}
		return n
	}
	n := tmplNames{
		Type:              id("", ""),
		New:               id("New", ""),
		NewWithDeployment: id("New", "WithDeployment"),
		Wrap:              id("Wrap", ""),
		Deploy:            id("Deploy", ""),
		Deployed:          id("Deployed", ""),
		Contract:          id("", "Contract"),
		Signatures:        id("", "Signatures"),
		Events:            id("", "Events"),
		Event:             id("", "Event"),
		Parse:             id("Parse", "Event"),
	}
	n.Marker = "is" + typeName + "Event"
	return n
}

// compactABI strips whitespace from the ABI and quotes it as a Go literal
func compactABI(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", errors.Wrap(err, artifact.ErrParseABI)
	}
	s := buf.String()
	if strings.Contains(s, "`") {
		return strconv.Quote(s), nil
	}
	return "`" + s + "`", nil
}

func docLines(doc string) []string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			out = append(out, "//")
			continue
		}
		out = append(out, "// "+line)
	}
	return out
}

func networks(c *artifact.Contract, overrides map[string]common.Address) []tmplNetwork {
	byChain := make(map[string]tmplNetwork)
	for id, n := range c.Networks {
		tn := tmplNetwork{ChainID: id, Address: n.Address.Hex()}
		if info := n.DeploymentInformation; info != nil {
			switch {
			case info.TransactionHash != nil:
				tn.TransactionHash = info.TransactionHash.Hex()
			case info.BlockNumber != nil:
				tn.BlockNumber = strconv.FormatUint(*info.BlockNumber, 10)
			}
		}
		byChain[id] = tn
	}
	for id, addr := range overrides {
		byChain[id] = tmplNetwork{ChainID: id, Address: addr.Hex()}
	}
	ids := make([]string, 0, len(byChain))
	for id := range byChain {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]tmplNetwork, len(ids))
	for i, id := range ids {
		out[i] = byChain[id]
	}
	return out
}

func deployment(c *artifact.Contract) (*tmplDeploy, error) {
	libs := c.Bytecode.UndefinedLibraries()
	var args []namedArg
	for _, lib := range libs {
		if strings.HasPrefix(lib, "$") {
			return nil, errors.Errorf("%s: %s", ErrUnnamedLibrary, lib)
		}
		args = append(args, namedArg{name: lib, typ: "common.Address"})
	}
	if c.ABI.HasConstructor() {
		for _, in := range c.ABI.Constructor.Inputs {
			t, err := bindType(in.Type)
			if err != nil {
				return nil, errors.Wrap(err, "constructor")
			}
			args = append(args, namedArg{name: in.Name, typ: t})
		}
	}
	ps := params(args)
	return &tmplDeploy{Libraries: ps[:len(libs)], Params: ps[len(libs):]}, nil
}

type namedArg struct {
	name string
	typ  string
}

func params(args []namedArg) []tmplParam {
	raw := make([]string, len(args))
	for i, a := range args {
		raw[i] = a.name
	}
	pn := paramNames(raw)
	fn := fieldNames(raw, "Arg")
	out := make([]tmplParam, len(args))
	for i, a := range args {
		out[i] = tmplParam{Name: pn[i], Field: fn[i], Raw: a.name, Type: a.typ}
	}
	return out
}

func methods(c *artifact.Contract, aliases map[string]string) ([]tmplMethod, error) {
	fns := c.ABI.Functions()
	entries := make([]namedEntry, len(fns))
	known := make(map[string]bool, len(fns))
	for i, fn := range fns {
		entries[i] = namedEntry{sig: fn.Sig, abiName: fn.RawName, alias: aliases[fn.Sig]}
		known[fn.Sig] = true
	}
	for sig := range aliases {
		if !known[sig] {
			return nil, errors.Errorf("%s: %s", ErrUnknownAlias, sig)
		}
	}
	resolved, err := resolveNames(entries)
	if err != nil {
		return nil, err
	}

	out := make([]tmplMethod, len(fns))
	for i, fn := range fns {
		if reserved[resolved[i]] {
			return nil, errors.Errorf("%s '%s': %s, use a method alias", ErrReservedName, resolved[i], fn.Sig)
		}
		args := make([]namedArg, len(fn.Inputs))
		for j, in := range fn.Inputs {
			t, err := bindType(in.Type)
			if err != nil {
				return nil, errors.Wrap(err, fn.Sig)
			}
			args[j] = namedArg{name: in.Name, typ: t}
		}
		ret, err := returnType(fn.Outputs)
		if err != nil {
			return nil, errors.Wrap(err, fn.Sig)
		}
		ps := params(args)
		fields := make([]string, len(ps))
		for j, p := range ps {
			fields[j] = p.Field + " " + p.Type
		}
		out[i] = tmplMethod{
			Name:   resolved[i],
			Sig:    fn.Sig,
			Doc:    docLines(c.MethodDoc(fn.Sig)),
			Params: ps,
			Args:   structType(fields),
			Return: ret,
			View:   fn.IsConstant(),
		}
		L.Trace().Str("Signature", fn.Sig).Str("Name", resolved[i]).Bool("View", out[i].View).Msg("Bound function")
	}
	return out, nil
}

func events(c *artifact.Contract, typeName string, opts Options) ([]tmplEvent, error) {
	evs := c.ABI.Events()
	entries := make([]namedEntry, len(evs))
	for i, ev := range evs {
		entries[i] = namedEntry{sig: ev.Sig, abiName: ev.RawName}
	}
	resolved, err := resolveNames(entries)
	if err != nil {
		return nil, err
	}

	prefix := typeName
	if opts.Unexported {
		prefix = strings.ToLower(typeName[:1]) + typeName[1:]
	}
	out := make([]tmplEvent, len(evs))
	for i, ev := range evs {
		switch resolved[i] {
		case "Event", "Events", "Signatures", "Contract":
			return nil, errors.Errorf("%s '%s': event %s", ErrReservedName, resolved[i], ev.Sig)
		}
		raw := make([]string, len(ev.Inputs))
		for j, in := range ev.Inputs {
			raw[j] = in.Name
		}
		fnames := fieldNames(raw, "Arg")
		fields := make([]tmplField, len(ev.Inputs))
		for j, in := range ev.Inputs {
			bind := bindType
			if in.Indexed {
				bind = bindTopicType
			}
			t, err := bind(in.Type)
			if err != nil {
				return nil, errors.Wrap(err, ev.Sig)
			}
			tagName := in.Name
			if tagName == "" {
				tagName = decapitalise(fnames[j])
			}
			fields[j] = tmplField{Name: fnames[j], Type: t, Tag: structTag(opts.EventTags, tagName)}
		}
		out[i] = tmplEvent{
			Name:      resolved[i],
			Type:      prefix + resolved[i],
			Sig:       ev.Sig,
			ID:        ev.ID.Hex(),
			Anonymous: ev.Anonymous,
			Fields:    fields,
		}
	}
	return out, nil
}

func structTag(keys []string, name string) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%q", k, name)
	}
	return "`" + strings.Join(parts, " ") + "`"
}
