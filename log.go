package ethcontract

import (
	"github.com/smartcontractkit/ethcontract/internal/logging"
)

const (
	LogLevelEnvVar = logging.LogLevelEnvVar
)

// L is the package logger, level is taken from ETHCONTRACT_LOG_LEVEL
var L = &logging.L
