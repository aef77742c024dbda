package srcset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is the sentinel matched by every ConfigError.
var ErrConfiguration = errors.New("configuration error")

// ConfigError reports a preset or source definition that cannot be rendered.
type ConfigError struct {
	Preset string
	Key    string
	Reason string
}

// Configf builds a ConfigError for key with a formatted reason.
func Configf(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Preset != "" {
		fmt.Fprintf(&b, ": preset %q", e.Preset)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, ": source %q", e.Key)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// ErrorKind classifies the error for callers that map failures to statuses.
func (e *ConfigError) ErrorKind() string { return "configuration" }

// WithPreset returns err annotated with the preset name when err is a
// ConfigError that does not name one yet. Other errors pass through.
func WithPreset(err error, preset string) error {
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Preset != "" {
		return err
	}
	clone := *cfgErr
	clone.Preset = preset
	return &clone
}
