package main

import (
	"os"

	"github.com/smartcontractkit/ethcontract"
	"github.com/smartcontractkit/ethcontract/cmd"
)

func main() {
	if err := cmd.RunCLI(os.Args); err != nil {
		ethcontract.L.Error().Err(err).Msg("ethcontract failed")
		os.Exit(1)
	}
}
