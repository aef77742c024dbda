// Package gencache inspects and reclaims the generated image directory.
//
// Derived images are content-addressed and never rewritten, so the directory
// only grows. The manifest records which source each derivative came from and
// the source digest at the time; a derivative becomes an orphan when its
// source disappears or its pixels change. Prune removes orphans and manifest
// rows whose file is already gone. Current derivatives are never removed.
//
// Use `picture cache stats` to inspect usage and `picture cache prune
// --dry-run` to preview what would be reclaimed.
package gencache
