// Package config loads, normalizes, and validates picture configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads either a TOML file or a Jekyll-style _config.yml with a
// picture block, and honours the PICTURE_SITE_DIR environment fallback. Presets
// keep the order of their sources exactly as written, since that order is the
// order sources appear in rendered markup.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical markup names, and clear validation errors.
package config
