// Package derive turns one derivation job into a resized, center-cropped copy
// of a source image stored in a content-addressed output tree.
//
// # Sizing
//
// Plan resolves the requested box against the native image: a missing axis is
// filled from the native aspect ratio, and a box larger than the source is
// shrunk to the largest box that keeps the requested ratio without upscaling.
//
// # Cache
//
// Derived files are named "{base}-{W}x{H}-{digest}{ext}" where digest is a
// short hash of the decoded pixels. A file that already exists is reused and
// never rewritten; editing the source changes the digest and therefore the
// name, so the old derivative is left behind rather than overwritten. Writes go
// through a temporary file and an atomic rename under a per-output lock, so
// concurrent requests for the same derivative produce exactly one writer.
package derive
