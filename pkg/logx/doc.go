// Package logx configures leetbot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//
// Sinks are fixed at startup; the agent's configuration is immutable for
// the process lifetime, so there is no live re-apply.
package logx
