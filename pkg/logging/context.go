package logging

import (
	"eepromkv/pkg/primitives"
	"log/slog"
)

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("recovery")
//	log.Info("marker pair resolved", "action", "replay")
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithPage creates a logger with page context.
// Useful for marker transitions and erases.
//
// Example:
//
//	log := logging.WithPage(primitives.Page1)
//	log.Debug("page erased", "base", base)
func WithPage(page primitives.PageIndex) *slog.Logger {
	return GetLogger().With("page", page.String())
}

// WithVariable creates a logger with variable identifier context.
//
// Example:
//
//	log := logging.WithVariable(id)
//	log.Debug("record appended", "value", v)
func WithVariable(id primitives.VariableID) *slog.Logger {
	return GetLogger().With("variable", id.String())
}

// WithError creates a logger with error context.
// Use this when logging errors to include the error in structured format.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
