package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/smartcontractkit/ethcontract"
	"github.com/smartcontractkit/ethcontract/artifact"
	"github.com/smartcontractkit/ethcontract/generate"
)

const (
	ErrNoArtifact       = "no artifact specified, use -a flag. Ex.: ethcontract generate -a build/Token.json"
	ErrNoDeployments    = "no deployments file, use -f flag or set " + ethcontract.ConfigPathEnvVar
	ErrMalformedPair    = "expected key=value"
	ErrInvalidAddress   = "invalid address"
	ErrWriteBindings    = "failed to write bindings"
	ErrUnknownChainID   = "no deployments for chain"
	ErrDuplicateMapping = "mapped twice"
)

// RunCLI runs the command line with output on stdout
func RunCLI(args []string) error {
	return NewApp(os.Stdout).Run(args)
}

// NewApp builds the command line application writing its output to w
func NewApp(w io.Writer) *cli.App {
	artifactFlags := []cli.Flag{
		&cli.StringFlag{Name: "artifact", Aliases: []string{"a"}, Usage: "artifact file"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: artifact.FormatTruffle.String(), Usage: "truffle, hardhat or hardhat-multi"},
		&cli.StringFlag{Name: "contract", Aliases: []string{"c"}, Usage: "contract of a multi-contract artifact"},
	}
	return &cli.App{
		Name:      "ethcontract",
		Version:   "v1.0.0",
		Usage:     "ethcontract CLI",
		UsageText: `generates typed Go bindings for Ethereum contracts and inspects artifacts and deployments`,
		Writer:    w,
		// signatures carry commas
		DisableSliceFlagSeparator: true,
		Commands: []*cli.Command{
			{
				Name:        "generate",
				HelpName:    "generate",
				Aliases:     []string{"g"},
				Description: "generate Go bindings for a contract",
				ArgsUsage:   "-a ${artifact} -o ${output.go}",
				Flags: append(append([]cli.Flag{}, artifactFlags...),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file, stdout when empty"},
					&cli.StringFlag{Name: "alias", Usage: "contract type name"},
					&cli.StringFlag{Name: "package", Aliases: []string{"p"}},
					&cli.StringSliceFlag{Name: "method", Aliases: []string{"m"}, Usage: "signature=alias, e.g. foo(uint256)=fooNumber"},
					&cli.StringSliceFlag{Name: "deployment", Aliases: []string{"d"}, Usage: "chainID=address"},
					&cli.StringSliceFlag{Name: "event-tag", Usage: "struct tag key added to event fields"},
					&cli.StringFlag{Name: "runtime", Value: generate.DefaultRuntimeImport, Usage: "runtime import path"},
					&cli.BoolFlag{Name: "unexported", Usage: "unexported contract type"},
				),
				Action: func(cCtx *cli.Context) error {
					path, format, err := artifactArgs(cCtx)
					if err != nil {
						return err
					}
					opts := generate.Options{
						Contract:      cCtx.String("contract"),
						Format:        format,
						Alias:         cCtx.String("alias"),
						Package:       cCtx.String("package"),
						EventTags:     cCtx.StringSlice("event-tag"),
						RuntimeImport: cCtx.String("runtime"),
						Unexported:    cCtx.Bool("unexported"),
					}
					if opts.MethodAliases, err = pairs(cCtx.StringSlice("method")); err != nil {
						return err
					}
					deployments, err := pairs(cCtx.StringSlice("deployment"))
					if err != nil {
						return err
					}
					if opts.Deployments, err = addresses(deployments); err != nil {
						return err
					}
					code, err := generate.GenerateFile(path, opts)
					if err != nil {
						return err
					}
					out := cCtx.String("out")
					if out == "" {
						_, err = cCtx.App.Writer.Write(code)
						return err
					}
					if err := os.WriteFile(out, code, 0644); err != nil {
						return errors.Wrap(err, ErrWriteBindings)
					}
					ethcontract.L.Info().Str("Artifact", path).Str("Output", out).Msg("Wrote bindings")
					return nil
				},
			},
			{
				Name:        "inspect",
				HelpName:    "inspect",
				Aliases:     []string{"i"},
				Description: "list functions with selectors, events with topics, libraries and deployments of a contract",
				ArgsUsage:   "-a ${artifact}",
				Flags:       artifactFlags,
				Action: func(cCtx *cli.Context) error {
					path, format, err := artifactArgs(cCtx)
					if err != nil {
						return err
					}
					a, err := artifact.Load(path, format)
					if err != nil {
						return err
					}
					c, err := a.Select(cCtx.String("contract"))
					if err != nil {
						return err
					}
					return inspect(cCtx.App.Writer, c)
				},
			},
			{
				Name:        "deployments",
				HelpName:    "deployments",
				Aliases:     []string{"d"},
				Description: "list the contracts recorded in the deployments file",
				ArgsUsage:   "-f ${deployments.toml}",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "deployments file, taken from the config when empty"},
					&cli.StringFlag{Name: "chain", Usage: "only list this chain id"},
				},
				Action: func(cCtx *cli.Context) error {
					path, err := deploymentsPath(cCtx.String("file"))
					if err != nil {
						return err
					}
					store, err := ethcontract.OpenDeploymentStore(path)
					if err != nil {
						return err
					}
					return listDeployments(cCtx.App.Writer, store, cCtx.String("chain"))
				},
			},
		},
	}
}

func artifactArgs(cCtx *cli.Context) (string, artifact.Format, error) {
	path := cCtx.String("artifact")
	if path == "" {
		return "", 0, errors.New(ErrNoArtifact)
	}
	format, err := artifact.ParseFormat(cCtx.String("format"))
	if err != nil {
		return "", 0, err
	}
	return path, format, nil
}

// pairs parses key=value arguments
func pairs(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, errors.Errorf("%s: '%s'", ErrMalformedPair, arg)
		}
		if _, dup := out[k]; dup {
			return nil, errors.Errorf("%s %s", k, ErrDuplicateMapping)
		}
		out[k] = v
	}
	return out, nil
}

func addresses(m map[string]string) (map[string]common.Address, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]common.Address, len(m))
	for k, v := range m {
		if !common.IsHexAddress(v) {
			return nil, errors.Errorf("%s for chain %s: '%s'", ErrInvalidAddress, k, v)
		}
		out[k] = common.HexToAddress(v)
	}
	return out, nil
}

func inspect(w io.Writer, c *artifact.Contract) error {
	var b strings.Builder
	fmt.Fprintf(&b, "contract %s\n", c.Name)
	if c.ABI.HasConstructor() {
		fmt.Fprintf(&b, "constructor %s\n", c.ABI.Constructor.Sig)
	}
	for _, fn := range c.ABI.Functions() {
		fmt.Fprintf(&b, "function 0x%x %s %s\n", fn.ID, fn.Sig, fn.StateMutability)
	}
	for _, ev := range c.ABI.Events() {
		anonymous := ""
		if ev.Anonymous {
			anonymous = " anonymous"
		}
		fmt.Fprintf(&b, "event %s %s%s\n", ev.ID.Hex(), ev.Sig, anonymous)
	}
	for _, e := range c.ABI.CustomErrors() {
		fmt.Fprintf(&b, "error 0x%x %s\n", e.ID[:4], e.Sig)
	}
	if c.ABI.HasFallback() {
		b.WriteString("fallback\n")
	}
	for _, lib := range c.Bytecode.UndefinedLibraries() {
		fmt.Fprintf(&b, "library %s\n", lib)
	}
	for _, id := range c.ChainIDs() {
		fmt.Fprintf(&b, "network %s %s\n", id, c.Networks[id].Address.Hex())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func deploymentsPath(file string) (string, error) {
	if file != "" {
		return file, nil
	}
	cfgPath := os.Getenv(ethcontract.ConfigPathEnvVar)
	if cfgPath == "" {
		return "", errors.New(ErrNoDeployments)
	}
	cfg, err := ethcontract.LoadConfig(cfgPath)
	if err != nil {
		return "", err
	}
	if cfg.DeploymentsFile == "" {
		return "", errors.New(ErrNoDeployments)
	}
	return cfg.DeploymentsPath(), nil
}

func listDeployments(w io.Writer, store *ethcontract.DeploymentStore, chain string) error {
	chains := store.ChainIDs()
	if chain != "" {
		if len(store.Contracts(chain)) == 0 {
			return errors.Errorf("%s %s", ErrUnknownChainID, chain)
		}
		chains = []string{chain}
	}
	var b strings.Builder
	for _, id := range chains {
		for _, name := range store.Contracts(id) {
			n, _ := store.Network(id, name)
			fmt.Fprintf(&b, "%s %s %s", id, name, n.Address.Hex())
			if info := n.DeploymentInformation; info != nil {
				switch {
				case info.TransactionHash != nil:
					fmt.Fprintf(&b, " tx %s", info.TransactionHash.Hex())
				case info.BlockNumber != nil:
					fmt.Fprintf(&b, " block %d", *info.BlockNumber)
				}
			}
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
