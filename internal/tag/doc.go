// Package tag parses picture directives.
//
// A directive has the form
//
//	[preset] path/to/img.jpg [source_key: path/to/alt.jpg ...] [attr="value" | attr ...]
//
// and appears in documents as {% picture ... %}.
package tag
