package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Validate ensures the configuration contains the required values.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMarkup(); err != nil {
		return err
	}
	if err := c.validateDerive(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	for _, name := range c.PresetNames() {
		if err := c.Presets[name].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SiteDir) == "" {
		return errors.New("paths.site_dir must be set")
	}
	if err := validateRelative("paths.asset_path", c.Paths.AssetPath); err != nil {
		return err
	}
	if err := validateRelative("paths.generated_path", c.Paths.GeneratedPath); err != nil {
		return err
	}
	if c.Paths.GeneratedPath == "." {
		return errors.New("paths.generated_path must not be the site root")
	}
	return nil
}

func validateRelative(key, value string) error {
	switch {
	case value == "":
		return fmt.Errorf("%s must be set", key)
	case path.IsAbs(value):
		return fmt.Errorf("%s must be relative to paths.site_dir, got %q", key, value)
	case value == ".." || strings.HasPrefix(value, "../"):
		return fmt.Errorf("%s must stay inside paths.site_dir, got %q", key, value)
	}
	return nil
}

func (c *Config) validateMarkup() error {
	switch c.Markup {
	case MarkupPicturefill, MarkupPicture:
		return nil
	default:
		return fmt.Errorf("markup: unsupported value %q (want %q or %q)", c.Markup, MarkupPicturefill, MarkupPicture)
	}
}

func (c *Config) validateDerive() error {
	if c.Derive.Workers < 0 {
		return errors.New("derive.workers must be >= 0")
	}
	if c.Derive.JPEGQuality < 1 || c.Derive.JPEGQuality > 100 {
		return errors.New("derive.jpeg_quality must be between 1 and 100")
	}
	if c.Derive.FingerprintCacheEntries < 0 {
		return errors.New("derive.fingerprint_cache_entries must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
