// Package logging provides a process-wide structured logger for eepromkv.
//
// The package wraps [log/slog] and exposes a single global logger instance
// that is initialized once and then retrieved via GetLogger. The store and
// the command line tools obtain their logger through this package, so level
// and output destination are controlled from a single place.
//
// # Initialisation
//
// Call Init (or InitDefault for defaults) once at program startup:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug}); err != nil {
//	    log.Fatal(err)
//	}
//
// InitDefault writes WARN-level text logs to stderr.
//
// # Retrieving the logger
//
//	logger := logging.GetLogger()
//	logger.Info("store initialised", "active", "page0")
//
// If GetLogger is called before Init, a default stderr logger is created
// lazily (via sync.Once).
//
// # Context helpers
//
//	log := logging.WithComponent("transfer") // adds component field
//	log := logging.WithPage(page)            // adds page field
//	log := logging.WithVariable(id)          // adds variable field
//	log := logging.WithError(err)            // adds error field
package logging
