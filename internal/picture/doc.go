// Package picture renders picture directives into responsive image markup.
//
// A Renderer looks up the directive's preset, resolves per-source image
// overrides, expands pixel densities, derives every source through the
// derivation engine, and assembles markup in the configured style. All
// configuration errors are reported before any image is read, and a render
// either returns a complete markup block or fails.
package picture
