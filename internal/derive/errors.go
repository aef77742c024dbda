package derive

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound reports a source image that does not exist.
	ErrSourceNotFound = errors.New("source image not found")
	// ErrSourceUnreadable reports a source image that exists but cannot be
	// opened or decoded.
	ErrSourceUnreadable = errors.New("source image unreadable")
)

// SourceError names the offending source path.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ErrorKind classifies the error as "not_found" or "unreadable".
func (e *SourceError) ErrorKind() string {
	if errors.Is(e.Err, ErrSourceNotFound) {
		return "not_found"
	}
	return "unreadable"
}

func sourceNotFound(path string) error {
	return &SourceError{Path: path, Err: ErrSourceNotFound}
}

func sourceUnreadable(path string, err error) error {
	return &SourceError{Path: path, Err: fmt.Errorf("%w: %v", ErrSourceUnreadable, err)}
}
