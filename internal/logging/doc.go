// Package logging provides structured logging for tvremote.
//
// This package wraps a global zap logger with convenience functions and a
// few domain helpers for scan and command events. Logging is silent by
// default so CLI output stays clean; set TVREMOTE_LOG_LEVEL (or pass
// --log-level) to enable it. Output goes to stderr.
//
// # Log Levels
//
//   - Debug: Per-command outcomes, address detection, registry I/O
//   - Info: Scan start/finish, discovered devices
//   - Warn: Registry read/write failures (treated as "no custom name")
//   - Error: Startup failures
//
// # Usage
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
//	log := logging.Named("scan")
//	logging.LogDiscovery(log, "192.168.1.42:1925", "TV-X", "Sala")
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The global logger is
// swapped under a lock.
package logging
