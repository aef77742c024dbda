// Package main hosts the picture CLI entrypoint and command graph.
//
// The Cobra command tree renders picture directives into responsive-image
// markup, expands whole pages, derives single images, inspects presets, and
// maintains the generated-image cache. Configuration resolution and logger
// setup live in the shared command context so subcommands only describe
// their own behavior.
//
// Rendered markup is written to stdout and logs to stderr, so output can be
// piped straight into a page or template.
package main
