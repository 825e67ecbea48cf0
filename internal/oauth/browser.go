package oauth

import (
	"fmt"

	"github.com/pkg/browser"
)

// Browser opens authorization URLs for the user.
type Browser interface {
	OpenURL(url string) error
}

// BrowserFunc adapts a function to the Browser interface.
type BrowserFunc func(url string) error

// OpenURL calls f(url).
func (f BrowserFunc) OpenURL(url string) error {
	return f(url)
}

// SystemBrowser opens URLs with the platform's default web browser.
type SystemBrowser struct{}

// OpenURL starts the default browser on url and returns once it is launched.
func (SystemBrowser) OpenURL(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
