// Package manifest records every derived image in a small SQLite database.
//
// The derived files themselves are the cache; the manifest only remembers
// where each one came from (source path and pixel digest) so the CLI can
// report usage and reclaim derivatives whose source has changed or vanished.
// Losing the database loses no images: derivatives are re-recorded the next
// time a render touches them.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package manifest
