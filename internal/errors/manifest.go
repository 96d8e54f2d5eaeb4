// Package errors provides error types for qcman.
// This file contains environment manifest and configuration errors.
package errors

import (
	"fmt"
	"strings"
)

// Manifest-related error constructors.

// ManifestNotFound creates an error for a missing manifest file.
func ManifestNotFound(path string) *QCError {
	return &QCError{
		Kind:    ErrManifest,
		Message: fmt.Sprintf("environment manifest not found: %s", path),
		Details: map[string]string{
			"path": path,
		},
		Suggestion: `Point qcman at your environment manifest:

  Option 1: Set the path in .qcman/config.yaml
    manifest: environment.yaml

  Option 2: Pass it explicitly
    qcman env validate --manifest environment.yaml`,
	}
}

// ManifestParseError creates an error for a manifest that failed to parse.
func ManifestParseError(path string, parseErr error) *QCError {
	return &QCError{
		Kind:    ErrManifest,
		Message: fmt.Sprintf("failed to parse environment manifest: %s", path),
		Cause:   parseErr,
		Details: map[string]string{
			"path": path,
		},
		Suggestion: `Check the manifest for YAML syntax errors:
  1. Ensure proper indentation (spaces, not tabs)
  2. Dependency entries are list items ("- numpy=1.21")
  3. Sub-manager blocks are mappings ("- pip:" followed by a list)`,
	}
}

// Configuration-related error constructors.

// ConfigNotFound creates an error for missing configuration.
func ConfigNotFound(configPath string) *QCError {
	return &QCError{
		Kind:    ErrConfig,
		Message: fmt.Sprintf("configuration file not found: %s", configPath),
		Details: map[string]string{
			"path": configPath,
		},
		Suggestion: `Create the qcman configuration:

  mkdir -p .qcman
  touch .qcman/config.yaml`,
	}
}

// ConfigValidationError creates an error for invalid configuration values.
func ConfigValidationError(field, message string, validOptions []string) *QCError {
	suggestion := fmt.Sprintf("Fix the %q field in .qcman/config.yaml", field)
	if len(validOptions) > 0 {
		suggestion += fmt.Sprintf("\n  Valid options: %s", strings.Join(validOptions, ", "))
	}

	return &QCError{
		Kind:    ErrConfig,
		Message: fmt.Sprintf("invalid configuration: %s", message),
		Details: map[string]string{
			"field": field,
		},
		Suggestion: suggestion,
	}
}
