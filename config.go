package lightjit

import (
	"go.uber.org/zap"
)

// RuntimeConfig controls translation and execution, with the default implementation as NewRuntimeConfig
type RuntimeConfig struct {
	logger *zap.Logger
}

// clone ensures all fields are copied even if nil.
func (c *RuntimeConfig) clone() *RuntimeConfig {
	return &RuntimeConfig{
		logger: c.logger,
	}
}

// NewRuntimeConfig returns the default configuration, which logs nothing.
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{logger: zap.NewNop()}
}

// WithLogger sets the logger used when translating and executing modules. Defaults to zap.NewNop if nil.
//
// Notes:
// * Each translated function is logged at zap.DebugLevel, as is each instruction when debug is enabled.
// * Runtime faults, such as reaching an "unreachable" instruction, are logged at zap.DebugLevel.
func (c *RuntimeConfig) WithLogger(logger *zap.Logger) *RuntimeConfig {
	if logger == nil {
		logger = zap.NewNop()
	}
	ret := c.clone()
	ret.logger = logger
	return ret
}
