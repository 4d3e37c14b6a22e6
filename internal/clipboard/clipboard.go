// Package clipboard copies prompt records to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"
)

// ClipboardError represents an error when no clipboard utility is available
type ClipboardError struct {
	OS      string
	Message string
}

func (e *ClipboardError) Error() string {
	return e.Message
}

// NewClipboardError creates a new ClipboardError with installation instructions
func NewClipboardError() *ClipboardError {
	return &ClipboardError{
		OS:      runtime.GOOS,
		Message: "no clipboard utility found. " + GetInstallInstructions(),
	}
}

// Writer puts text on a clipboard
type Writer interface {
	WriteAll(text string) error
}

// System is the OS clipboard
type System struct{}

// WriteAll copies text to the OS clipboard
func (System) WriteAll(text string) error {
	if !IsClipboardAvailable() {
		return NewClipboardError()
	}
	return clipboard.WriteAll(text)
}

// CopyWithFallback copies text with w and returns a status message
func CopyWithFallback(w Writer, text string) (string, error) {
	if err := w.WriteAll(text); err != nil {
		var clipErr *ClipboardError
		if errors.As(err, &clipErr) {
			return "", err
		}
		return "", fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return "Copied to clipboard!", nil
}

// IsClipboardAvailable checks if clipboard functionality is available
func IsClipboardAvailable() bool {
	return !clipboard.Unsupported
}

// GetInstallInstructions returns installation instructions for clipboard utilities
func GetInstallInstructions() string {
	switch runtime.GOOS {
	case "linux":
		return "Install xclip, xsel or wl-clipboard"
	case "darwin":
		return "pbcopy should be available by default on macOS"
	case "windows":
		return "clip should be available by default on Windows"
	default:
		return fmt.Sprintf("Clipboard not supported on %s", runtime.GOOS)
	}
}
