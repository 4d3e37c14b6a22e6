package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dpshade/prompt-mover/internal/errors"
)

const (
	maxPresetNameLength = 128
	maxIdentifierLength = 200
)

// ValidatePresetName checks that a preset name is safe to use as a file name
func ValidatePresetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.ValidationError("Preset name cannot be empty")
	}
	if len(name) > maxPresetNameLength {
		return errors.ValidationError(fmt.Sprintf("Preset name too long (max %d characters)", maxPresetNameLength))
	}
	if strings.HasPrefix(name, ".") {
		return errors.ValidationError("Preset name cannot start with '.'")
	}
	if strings.ContainsAny(name, `/\:*?"<>|`) {
		return errors.ValidationError("Preset name contains invalid characters")
	}
	if hasControl(name) {
		return errors.ValidationError("Preset name contains control characters")
	}
	return nil
}

// ValidateIdentifier checks a prompt identifier. Identifiers are chosen by the
// host, so only empty, oversized or control-character values are rejected.
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.ValidationError("Identifier cannot be empty")
	}
	if len(id) > maxIdentifierLength {
		return errors.ValidationError(fmt.Sprintf("Identifier too long (max %d characters)", maxIdentifierLength))
	}
	if hasControl(id) {
		return errors.ValidationError("Identifier contains control characters")
	}
	return nil
}

// SanitizeString removes control characters other than newlines and tabs
func SanitizeString(input string) string {
	var result strings.Builder
	for _, r := range input {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

func hasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
