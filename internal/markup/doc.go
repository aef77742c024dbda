// Package markup renders responsive image markup from derived sources.
//
// Two styles are supported: Picturefill emits span placeholders with
// data-src and data-media attributes for the picturefill polyfill, and
// NativePicture emits a picture element with source children. Output is
// never indented because Markdown processors treat indented lines as code.
package markup
