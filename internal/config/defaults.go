package config

const (
	defaultConfigPath         = "~/.config/picture/config.toml"
	projectConfigName         = "picture.toml"
	jekyllConfigName          = "_config.yml"
	defaultAssetPath          = "."
	generatedDirName          = "generated"
	defaultStateDirName       = ".picture"
	manifestFileName          = "manifest.db"
	lockDirName               = "locks"
	defaultMarkup             = MarkupPicturefill
	defaultJPEGQuality        = 85
	defaultFingerprintEntries = 1024
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"

	// SiteDirEnv overrides an unset paths.site_dir.
	SiteDirEnv = "PICTURE_SITE_DIR"
)

// Markup names accepted in configuration.
const (
	MarkupPicturefill = "picturefill"
	MarkupPicture     = "picture"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetPath: defaultAssetPath,
		},
		Markup: defaultMarkup,
		Derive: Derive{
			JPEGQuality:             defaultJPEGQuality,
			FingerprintCacheEntries: defaultFingerprintEntries,
		},
		Manifest: Manifest{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
