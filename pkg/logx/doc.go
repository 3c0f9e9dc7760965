// Package logx configures vaultbot's structured logging.
//
// Components take a logx.Logger by value. The zero value is a no-op, so a
// component can be built in tests without any logging setup.
//
// A Service owns the real sinks:
//   - console output (short timestamp, file:line caller)
//   - an optional JSON file
//   - an optional Telegram chat sink, filtered by level and rate limited
//
// Loggers derived from a Service follow Service.Apply, so a config reload
// changes level and sinks without rebuilding components.
package logx
