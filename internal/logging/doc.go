// Package logging assembles structured slog loggers and formatting helpers used
// across picture.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so render code can tag log lines
// with the render correlation id and preset name. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
