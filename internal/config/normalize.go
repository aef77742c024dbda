package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.Markup = strings.ToLower(strings.TrimSpace(c.Markup))
	if c.Markup == "" {
		c.Markup = defaultMarkup
	}
	c.normalizeDerive()
	c.normalizeLogging()
	for name, preset := range c.Presets {
		if preset == nil {
			delete(c.Presets, name)
			continue
		}
		preset.Name = name
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	site := strings.TrimSpace(c.Paths.SiteDir)
	switch {
	case site == "":
		if value, ok := os.LookupEnv(SiteDirEnv); ok && strings.TrimSpace(value) != "" {
			site = strings.TrimSpace(value)
		} else if c.jekyll && c.origin != "" {
			site = c.origin
		} else {
			site = "."
		}
	case c.jekyll:
		site = siteDirFor(c.origin, site)
	}
	if c.Paths.SiteDir, err = expandPath(site); err != nil {
		return fmt.Errorf("paths.site_dir: %w", err)
	}

	c.Paths.AssetPath = cleanSlash(c.Paths.AssetPath)
	if c.Paths.AssetPath == "" {
		c.Paths.AssetPath = defaultAssetPath
	}
	c.Paths.GeneratedPath = cleanSlash(c.Paths.GeneratedPath)
	if c.Paths.GeneratedPath == "" {
		c.Paths.GeneratedPath = path.Join(c.Paths.AssetPath, generatedDirName)
	}

	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = filepath.Join(c.Paths.SiteDir, defaultStateDirName)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// cleanSlash cleans a site-relative, slash-separated path. Empty stays empty.
func cleanSlash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return path.Clean(filepath.ToSlash(value))
}

func (c *Config) normalizeDerive() {
	if c.Derive.JPEGQuality == 0 {
		c.Derive.JPEGQuality = defaultJPEGQuality
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
