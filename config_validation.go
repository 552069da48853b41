// config_validation.go: Validation of tessera configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
)

// Validation errors
var (
	ErrInvalidFilePath      = errors.New(ErrCodeInvalidConfig, "configuration file path is invalid")
	ErrInvalidBufferSize    = errors.New(ErrCodeInvalidConfig, "audit buffer size cannot be negative")
	ErrInvalidFlushInterval = errors.New(ErrCodeInvalidConfig, "audit flush interval cannot be negative")
	ErrInvalidOutputFile    = errors.New(ErrCodeInvalidConfig, "audit output file path is invalid")
)

// ValidationResult lists the problems found in a configuration.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a one-line summary.
func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "Configuration is valid"
		}
		return fmt.Sprintf("Configuration is valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("Configuration is invalid: %d error(s), %d warning(s)",
		len(vr.Errors), len(vr.Warnings))
}

// Validate returns the first configuration error, or nil.
func (c *Config) Validate() error {
	result := c.ValidateDetailed()
	if result.Valid {
		return nil
	}
	return errors.New(ErrCodeInvalidConfig, result.Errors[0]).
		WithContext("errors", len(result.Errors))
}

// ValidateDetailed checks every field and collects errors and warnings.
func (c *Config) ValidateDetailed() ValidationResult {
	result := ValidationResult{
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	c.validateFile(&result)
	c.validateAudit(&result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (c *Config) validateFile(result *ValidationResult) {
	if c.File == "" {
		result.Warnings = append(result.Warnings, "no configuration file bound, load and save are no-ops")
		return
	}
	if strings.ContainsRune(c.File, 0) {
		result.Errors = append(result.Errors, ErrInvalidFilePath.Error())
		return
	}
	if c.Format == nil {
		if _, known := formatByExtension(c.File); !known {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("unknown extension %q, using the ini format", filepath.Ext(c.File)))
		}
	}
}

func (c *Config) validateAudit(result *ValidationResult) {
	if c.AuditLogger != nil || !c.Audit.Enabled {
		return
	}

	if c.Audit.BufferSize < 0 {
		result.Errors = append(result.Errors, ErrInvalidBufferSize.Error())
	} else if c.Audit.BufferSize > 10000 {
		result.Warnings = append(result.Warnings, "large audit buffer size may delay event persistence")
	}

	if c.Audit.FlushInterval < 0 {
		result.Errors = append(result.Errors, ErrInvalidFlushInterval.Error())
	} else if c.Audit.FlushInterval == 0 {
		result.Warnings = append(result.Warnings, "audit flush interval is 0, events are written only when the buffer fills")
	}

	if c.Audit.OutputFile != "" {
		if err := validateOutputFile(c.Audit.OutputFile); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
}

// validateOutputFile checks that the audit file's directory exists.
func validateOutputFile(outputFile string) error {
	cleanPath := filepath.Clean(outputFile)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New(ErrCodeInvalidConfig,
			fmt.Sprintf("%s: '%s' is not a file path", ErrInvalidOutputFile.Error(), outputFile))
	}

	dir := filepath.Dir(cleanPath)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(ErrCodeInvalidConfig,
				fmt.Sprintf("directory '%s' does not exist", dir))
		}
		return errors.Wrap(err, ErrCodeInvalidConfig,
			fmt.Sprintf("cannot access directory '%s'", dir))
	}
	if !info.IsDir() {
		return errors.New(ErrCodeInvalidConfig,
			fmt.Sprintf("'%s' is not a directory", dir))
	}
	return nil
}
