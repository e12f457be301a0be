package main

import (
	"fmt"
	"maps"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/pterm/pterm"
)

// consoleLogger renders runtime.Logger calls through pterm's structured logger.
type consoleLogger struct {
	logger *pterm.Logger
	fields map[string]interface{}
}

func newConsoleLogger(level pterm.LogLevel) *consoleLogger {
	return &consoleLogger{logger: pterm.DefaultLogger.WithLevel(level)}
}

// parseLevel maps a level name to pterm's levels. Unknown names mean info.
func parseLevel(name string) pterm.LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "disabled":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

func (c *consoleLogger) args() []pterm.LoggerArgument {
	return c.logger.ArgsFromMap(c.fields)
}

func (c *consoleLogger) Debug(format string, v ...interface{}) {
	c.logger.Debug(fmt.Sprintf(format, v...), c.args())
}

func (c *consoleLogger) Info(format string, v ...interface{}) {
	c.logger.Info(fmt.Sprintf(format, v...), c.args())
}

func (c *consoleLogger) Warn(format string, v ...interface{}) {
	c.logger.Warn(fmt.Sprintf(format, v...), c.args())
}

func (c *consoleLogger) Error(format string, v ...interface{}) {
	c.logger.Error(fmt.Sprintf(format, v...), c.args())
}

func (c *consoleLogger) WithField(key string, v interface{}) runtime.Logger {
	return c.WithFields(map[string]interface{}{key: v})
}

func (c *consoleLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(c.fields)+len(fields))
	maps.Copy(merged, c.fields)
	maps.Copy(merged, fields)
	return &consoleLogger{logger: c.logger, fields: merged}
}

func (c *consoleLogger) Fields() map[string]interface{} {
	return c.fields
}

var _ runtime.Logger = (*consoleLogger)(nil)
