package artifact

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const ErrLibraryDefinedTwice = "library is already linked or scheduled for deployment"

// PendingLibrary is a library that has to be deployed before the contract that needs it
type PendingLibrary struct {
	Name string
	Code Bytecode
}

// Linker collects the libraries a contract is linked against, either by address or as
// bytecode to deploy alongside it, and verifies the set is complete before deployment
type Linker struct {
	code     Bytecode
	resolved map[string]common.Address
	pending  map[string]Bytecode
	order    []string
}

func NewLinker(code Bytecode) *Linker {
	return &Linker{
		code:     code,
		resolved: make(map[string]common.Address),
		pending:  make(map[string]Bytecode),
	}
}

// Library links an already deployed library by name
func (l *Linker) Library(name string, address common.Address) error {
	if err := l.define(name); err != nil {
		return err
	}
	l.resolved[name] = address
	return nil
}

// DeployLibrary schedules a library to be deployed before the contract
func (l *Linker) DeployLibrary(name string, code Bytecode) error {
	if err := l.define(name); err != nil {
		return err
	}
	l.pending[name] = code
	return nil
}

func (l *Linker) define(name string) error {
	if _, ok := l.resolved[name]; ok {
		return errors.Errorf("%s: %s", ErrLibraryDefinedTwice, name)
	}
	if _, ok := l.pending[name]; ok {
		return errors.Errorf("%s: %s", ErrLibraryDefinedTwice, name)
	}
	l.order = append(l.order, name)
	return nil
}

// Finish links every resolved library into the contract and the pending libraries, then
// returns the contract bytecode together with the libraries to deploy, dependencies first.
// Pending libraries still carry placeholders for the libraries deployed before them, link
// those with Resolve as their addresses become known.
func (l *Linker) Finish() (Bytecode, []PendingLibrary, error) {
	code := l.code
	pending := make(map[string]Bytecode, len(l.pending))
	for name, c := range l.pending {
		pending[name] = c
	}

	for _, name := range l.order {
		addr, ok := l.resolved[name]
		if !ok {
			continue
		}
		used := code.Contains(name)
		if err := code.Link(name, addr); err != nil {
			return Bytecode{}, nil, err
		}
		for lib, c := range pending {
			if c.Contains(name) {
				used = true
				if err := c.Link(name, addr); err != nil {
					return Bytecode{}, nil, err
				}
				pending[lib] = c
			}
		}
		if !used {
			return Bytecode{}, nil, &LinkerError{Kind: UnusedDependency, Library: name}
		}
	}

	var missing []string
	for _, lib := range code.UndefinedLibraries() {
		if !l.hasPending(lib, pending) {
			missing = append(missing, lib)
		}
	}
	if len(missing) > 0 {
		return Bytecode{}, nil, &LinkerError{Kind: MissingDependency, Missing: missing}
	}
	for _, name := range l.order {
		c, ok := pending[name]
		if !ok {
			continue
		}
		var unknown []string
		for _, dep := range c.UndefinedLibraries() {
			if !l.hasPending(dep, pending) {
				unknown = append(unknown, dep)
			}
		}
		if len(unknown) > 0 {
			return Bytecode{}, nil, &LinkerError{Kind: NestedDependency, Library: name, Missing: unknown}
		}
	}
	for _, name := range l.order {
		if _, ok := pending[name]; ok && !l.referenced(name, code, pending) {
			return Bytecode{}, nil, &LinkerError{Kind: UnusedDependency, Library: name}
		}
	}

	libs, err := l.deploymentOrder(pending)
	if err != nil {
		return Bytecode{}, nil, err
	}
	return code, libs, nil
}

// hasPending matches a placeholder, name-padded or hashed, against the pending libraries
func (l *Linker) hasPending(placeholder string, pending map[string]Bytecode) bool {
	for name := range pending {
		if placeholder == name || "$"+hashedPlaceholder(name)[3:37]+"$" == placeholder {
			return true
		}
	}
	return false
}

func (l *Linker) referenced(name string, code Bytecode, pending map[string]Bytecode) bool {
	if code.Contains(name) {
		return true
	}
	for lib, c := range pending {
		if lib != name && c.Contains(name) {
			return true
		}
	}
	return false
}

func (l *Linker) deploymentOrder(pending map[string]Bytecode) ([]PendingLibrary, error) {
	remaining := make([]string, 0, len(pending))
	for _, name := range l.order {
		if _, ok := pending[name]; ok {
			remaining = append(remaining, name)
		}
	}
	var out []PendingLibrary
	included := make(map[string]bool)
	for len(remaining) > 0 {
		progressed := false
		for i, name := range remaining {
			code := pending[name]
			ready := true
			for dep := range pending {
				if dep != name && !included[dep] && code.Contains(dep) {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			out = append(out, PendingLibrary{Name: name, Code: code})
			included[name] = true
			remaining = append(remaining[:i], remaining[i+1:]...)
			progressed = true
			break
		}
		if !progressed {
			sort.Strings(remaining)
			return nil, &LinkerError{Kind: NestedDependency, Library: remaining[0], Missing: remaining[1:]}
		}
	}
	return out, nil
}
