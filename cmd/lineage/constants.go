package main

import (
	"fmt"
	"slices"
	"strings"
)

// Default limits for CLI commands.
const (
	DefaultListLimit = 50
	shortIDLength    = 8
)

// validateFormat checks an output format flag against the allowed values.
func validateFormat(format string, valid ...string) error {
	if slices.Contains(valid, format) {
		return nil
	}
	return fmt.Errorf("invalid format: %s (valid: %s)", format, strings.Join(valid, ", "))
}
