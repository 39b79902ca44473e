package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	LogLevelEnvVar = "ETHCONTRACT_LOG_LEVEL"
)

// L is the logger shared by every ethcontract package
var L zerolog.Logger

func init() {
	Init()
}

// Init (re)configures L from ETHCONTRACT_LOG_LEVEL, unknown levels fall back to info
func Init() {
	lvlStr := os.Getenv(LogLevelEnvVar)
	if lvlStr == "" {
		lvlStr = "info"
	}
	lvl, err := zerolog.ParseLevel(lvlStr)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	L = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)
}
