package generate

import "text/template"

var bindingsTemplate = template.Must(template.New("bindings").Parse(bindingsSource))

const bindingsSource = `// Code generated by ethcontract. DO NOT EDIT.

package {{.Package}}

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	ethcontract "{{.Runtime}}"
	"{{.Runtime}}/artifact"
	"{{.Runtime}}/int256"
	"{{.Runtime}}/transport"
)

// Reference imports to suppress errors if they are not otherwise used.
var (
	_ = context.Background
	_ = big.NewInt
	_ = abi.ToCamelCase
	_ = common.HexToAddress
	_ = int256.Zero
)

const {{.Low}}ABI = {{.ABI}}

const {{.Low}}Bytecode = "{{.Bytecode}}"

var (
	{{.Low}}RawOnce sync.Once
	{{.Low}}Raw     *artifact.Contract
)

// {{.Names.Contract}} returns the parsed {{.Name}} contract shared by every binding.
func {{.Names.Contract}}() *artifact.Contract {
	{{.Low}}RawOnce.Do(func() {
		parsed, err := artifact.ParseABI([]byte({{.Low}}ABI))
		if err != nil {
			panic(err)
		}
		{{.Low}}Raw = &artifact.Contract{
			Name:     {{printf "%q" .Name}},
			ABI:      parsed,
			Bytecode: artifact.MustBytecode({{.Low}}Bytecode),
			Networks: map[string]artifact.Network{
			{{- range .Networks}}
				{{printf "%q" .ChainID}}: {
					Address: common.HexToAddress("{{.Address}}"),
					{{- if .TransactionHash}}
					DeploymentInformation: artifact.DeployedInTransaction(common.HexToHash("{{.TransactionHash}}")),
					{{- else if .BlockNumber}}
					DeploymentInformation: artifact.DeployedAtBlock({{.BlockNumber}}),
					{{- end}}
				},
			{{- end}}
			},
		}
	})
	return {{.Low}}Raw
}

// {{.Names.Type}} is a typed binding of the {{.Name}} contract.
{{- if .Doc}}
//
{{- range .Doc}}
{{.}}
{{- end}}
{{- end}}
type {{.Names.Type}} struct {
	instance *ethcontract.Instance
}

// {{.Names.New}} binds the contract deployed at address.
func {{.Names.New}}(t transport.Transport, address common.Address) *{{.Names.Type}} {
	return {{.Names.Wrap}}(ethcontract.At(t, {{.Names.Contract}}().ABI, address))
}

// {{.Names.NewWithDeployment}} binds the contract, event queries start at its deployment.
func {{.Names.NewWithDeployment}}(t transport.Transport, address common.Address, deployment *artifact.DeploymentInformation) *{{.Names.Type}} {
	return {{.Names.Wrap}}(ethcontract.AtWithDeployment(t, {{.Names.Contract}}().ABI, address, deployment))
}

// {{.Names.Wrap}} binds an instance created with the {{.Name}} ABI.
func {{.Names.Wrap}}(i *ethcontract.Instance) *{{.Names.Type}} {
	return &{{.Names.Type}}{instance: i}
}
{{if .Deployed}}
// {{.Names.Deployed}} finds the contract on the network t is connected to.
func {{.Names.Deployed}}(ctx context.Context, t transport.Transport) (*{{.Names.Type}}, error) {
	i, err := ethcontract.Deployed(ctx, t, {{.Names.Contract}}())
	if err != nil {
		return nil, err
	}
	return {{.Names.Wrap}}(i), nil
}
{{end}}
{{- with .Deploy}}
// {{$.Names.Deploy}} prepares a deployment of the contract.
func {{$.Names.Deploy}}(t transport.Transport{{range .Libraries}}, {{.Name}} common.Address{{end}}{{range .Params}}, {{.Name}} {{.Type}}{{end}}) *ethcontract.DeployBuilder[*{{$.Names.Type}}] {
	{{- if .Libraries}}
	libraries := map[string]common.Address{
		{{- range .Libraries}}
		{{printf "%q" .Raw}}: {{.Name}},
		{{- end}}
	}
	return ethcontract.NewDeployBuilder(t, {{$.Names.Contract}}(), libraries, {{$.Names.Wrap}}{{range .Params}}, {{.Name}}{{end}})
	{{- else}}
	return ethcontract.NewDeployBuilder(t, {{$.Names.Contract}}(), nil, {{$.Names.Wrap}}{{range .Params}}, {{.Name}}{{end}})
	{{- end}}
}
{{end}}
func (c *{{.Names.Type}}) Address() common.Address {
	return c.instance.Address()
}

func (c *{{.Names.Type}}) Instance() *ethcontract.Instance {
	return c.instance
}

// {{.Names.Signatures}} holds a typed handle per function.
type {{.Names.Signatures}} struct {
{{- range .Methods}}
	{{.Name}} ethcontract.Signature[{{.Args}}, {{.Return}}]
{{- end}}
}

var {{.Low}}Sigs = {{.Names.Signatures}}{
{{- range .Methods}}
	{{.Name}}: ethcontract.NewSignature[{{.Args}}, {{.Return}}]({{printf "%q" .Sig}}),
{{- end}}
}

func (c *{{.Names.Type}}) Signatures() {{.Names.Signatures}} {
	return {{.Low}}Sigs
}
{{range .Methods}}
// {{.Name}} {{if .View}}calls{{else}}sends{{end}} {{.Sig}}.
{{- if .Doc}}
//
{{- range .Doc}}
{{.}}
{{- end}}
{{- end}}
func (c *{{$.Names.Type}}) {{.Name}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}} {{$p.Type}}{{end}}) (*ethcontract.{{if .View}}ViewMethodBuilder{{else}}MethodBuilder{{end}}[{{.Return}}], error) {
	return ethcontract.{{if .View}}ViewMethod{{else}}Method{{end}}[{{.Return}}](c.instance, {{$.Low}}Sigs.{{.Name}}.Selector{{range .Params}}, {{.Name}}{{end}})
}
{{end}}
{{- if .Fallback}}
// Fallback sends data to the fallback function.
func (c *{{.Names.Type}}) Fallback(data []byte) (*ethcontract.MethodBuilder[ethcontract.Void], error) {
	return c.instance.Fallback(data)
}
{{end}}
{{- if .Events}}
{{- range .Events}}
// {{.Type}} is the {{.Sig}} event{{if .Anonymous}}, emitted anonymously{{end}}.
type {{.Type}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}}{{if .Tag}} {{.Tag}}{{end}}
{{- end}}
}

func ({{.Type}}) {{$.Names.Marker}}() {}
{{end}}
// {{.Names.Event}} is any event of the contract.
type {{.Names.Event}} interface {
	{{.Names.Marker}}()
}

// {{.Names.Events}} creates typed event filters.
type {{.Names.Events}} struct {
	instance *ethcontract.Instance
}

func (c *{{.Names.Type}}) Events() {{.Names.Events}} {
	return {{.Names.Events}}{instance: c.instance}
}
{{range .Events}}
// {{.Name}} filters {{.Sig}} events.
func (e {{$.Names.Events}}) {{.Name}}() *ethcontract.EventBuilder[{{.Type}}] {
	return ethcontract.NewEventBuilder[{{.Type}}](e.instance.Transport(), {{$.Low}}EventABI({{printf "%q" .Sig}}), e.instance.Address())
}
{{end}}
// AllEvents queries every event of the contract.
func (c *{{.Names.Type}}) AllEvents() *ethcontract.AllEventsBuilder[{{.Names.Event}}] {
	return ethcontract.AllEventsOf[{{.Names.Event}}](c.instance, {{.Names.Parse}})
}

// {{.Names.Parse}} decodes a log of any non-anonymous event of the contract.
func {{.Names.Parse}}(raw ethcontract.RawLog) ({{.Names.Event}}, error) {
	if len(raw.Topics) == 0 {
		return nil, &ethcontract.AbiError{Kind: ethcontract.InvalidData, Detail: ethcontract.ErrEventSignature}
	}
	switch raw.Topics[0] {
	{{- range .Events}}{{if not .Anonymous}}
	case common.HexToHash("{{.ID}}"):
		return {{$.Low}}ParseAs[{{.Type}}]({{printf "%q" .Sig}}, raw)
	{{- end}}{{end}}
	}
	return nil, &ethcontract.AbiError{Kind: ethcontract.InvalidName, Detail: raw.Topics[0].Hex()}
}

func {{.Low}}ParseAs[E {{.Names.Event}}](sig string, raw ethcontract.RawLog) ({{.Names.Event}}, error) {
	event, err := ethcontract.ParseEvent[E]({{.Low}}EventABI(sig), raw)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func {{.Low}}EventABI(sig string) abi.Event {
	event, ok := {{.Names.Contract}}().ABI.EventBySignature(sig)
	if !ok {
		panic("unknown event " + sig)
	}
	return event
}
{{- else}}
// AllEvents queries every log of the contract.
func (c *{{.Names.Type}}) AllEvents() *ethcontract.AllEventsBuilder[ethcontract.RawLog] {
	return c.instance.AllEvents()
}
{{- end}}
`
