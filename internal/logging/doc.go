// Package logging provides slog loggers with per-module levels.
//
// Every record goes to the console (stdout, or stderr when Config.Stderr is
// set so the terminal pixel preview owns stdout), to the systemd journal
// when journald is reachable, and to a ring buffer served by GET /api/logs.
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"dispatch": "debug"},
//	})
//	logger := logging.GetLogger("playback")
//	logger.Info("Rendering slot", "slot", 1, "color", "#FF0000")
//
// Loggers are cached per module and hold a slog.LevelVar, so calling
// Initialize again (config hot reload) changes the level of loggers that
// components already hold.
//
// In the journal, attributes become upper-case fields under the identifier
// rgbnode:
//
//	journalctl -t rgbnode MODULE=dispatch
//	journalctl -t rgbnode -p err
//
// The TOML form accepts module levels directly under [logging] or in a
// [logging.modules] table:
//
//	[logging]
//	level = "info"
//	format = "json"
//	bus = "debug"
//
//	[logging.modules]
//	pixel = "error"
package logging
