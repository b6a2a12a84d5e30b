// Package viewer opens finished reports in the desktop's default viewer.
package viewer

import (
	"fmt"
	"log/slog"

	"github.com/cli/browser"
)

// Viewer opens a local file for the user.
type Viewer interface {
	Open(path string) error
}

// System opens files with the OS default application.
type System struct {
	open func(string) error
}

// NewSystem returns a viewer backed by the platform opener
// (open, xdg-open or start).
func NewSystem() *System {
	return &System{open: browser.OpenFile}
}

// Open launches the default application for path.
func (s *System) Open(path string) error {
	if err := s.open(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return nil
}

// Noop is used when opening reports is disabled.
type Noop struct {
	Logger *slog.Logger
}

// Open only logs the path.
func (n Noop) Open(path string) error {
	if n.Logger != nil {
		n.Logger.Debug("report viewer disabled", "path", path)
	}
	return nil
}
