package artifact

import (
	"fmt"
	"strings"
)

const (
	ErrReadArtifact        = "failed to open contract artifact file"
	ErrParseArtifact       = "failed to parse contract artifact JSON"
	ErrParseABI            = "failed to parse contract ABI"
	ErrUnsupportedFormat   = "unsupported artifact format"
	ErrMissingABI          = "artifact has no abi field"
	ErrContractNotFound    = "contract not found in artifact"
	ErrAmbiguousContract   = "artifact contains several contracts, select one by name"
	ErrDuplicateChain      = "chain appears several times in the artifact"
	ErrAbiMismatch         = "contract has different ABIs on different chains"
	ErrEmptyArtifact       = "artifact contains no contracts"
	ErrUnknownABISignature = "unknown signature in ABI declaration"
)

// ArtifactError is returned when an artifact cannot be loaded or parsed
type ArtifactError struct {
	Origin string
	Reason string
	Err    error
}

func (e *ArtifactError) Error() string {
	msg := e.Reason
	if e.Origin != "" {
		msg = fmt.Sprintf("%s: %s", e.Origin, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *ArtifactError) Unwrap() error { return e.Err }

type BytecodeErrorKind int

const (
	InvalidLength BytecodeErrorKind = iota
	InvalidHexDigit
	PlaceholderTooShort
	LinkNameTooLong
	LinkRequired
)

// BytecodeError is returned for malformed bytecode, bad library names and unlinked bytecode
type BytecodeError struct {
	Kind BytecodeErrorKind
	// Detail is the offending digit or library name
	Detail string
	// Libraries lists the unresolved placeholders for LinkRequired
	Libraries []string
}

func (e *BytecodeError) Error() string {
	switch e.Kind {
	case InvalidLength:
		return "invalid bytecode length"
	case InvalidHexDigit:
		return fmt.Sprintf("invalid hex digit '%s'", e.Detail)
	case PlaceholderTooShort:
		return "placeholder at end of bytecode is too short"
	case LinkNameTooLong:
		return fmt.Sprintf("library name %q is too long for a link placeholder", e.Detail)
	case LinkRequired:
		return fmt.Sprintf("bytecode requires linking of libraries: %s", strings.Join(e.Libraries, ", "))
	}
	return "bytecode error"
}

type LinkerErrorKind int

const (
	// UnusedDependency is a library that nothing being deployed links against
	UnusedDependency LinkerErrorKind = iota
	// MissingDependency is a placeholder left without an address or a library to deploy
	MissingDependency
	// NestedDependency is a library to deploy that itself needs an unknown library
	NestedDependency
)

type LinkerError struct {
	Kind    LinkerErrorKind
	Library string
	Missing []string
}

func (e *LinkerError) Error() string {
	switch e.Kind {
	case UnusedDependency:
		return fmt.Sprintf("library %s is not used by the contract or its libraries", e.Library)
	case MissingDependency:
		return fmt.Sprintf("missing libraries: %s", strings.Join(e.Missing, ", "))
	case NestedDependency:
		return fmt.Sprintf("library %s depends on unknown libraries: %s", e.Library, strings.Join(e.Missing, ", "))
	}
	return "linker error"
}
