// config.go: Configuration for tessera root nodes
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"log"

	"github.com/spf13/afero"
)

// Config binds a RootNode to its file and collaborators.
type Config struct {
	// File is the configuration file path. A leading "~" is expanded.
	// Empty leaves the root unbound: Load and Save are no-ops.
	File string

	// Fs is the filesystem files are read from and written to.
	// Defaults to the operating system filesystem.
	Fs afero.Fs

	// Style is the lexical style of the text format. Defaults to FlexibleStyle.
	Style *LexicalStyle

	// Format overrides format detection by file extension.
	Format Format

	// Audit configures a journal owned by the root node. It is disabled
	// unless Enabled is set.
	Audit AuditConfig

	// AuditLogger is a shared journal. It takes precedence over Audit and
	// is not closed by the root node.
	AuditLogger *AuditLogger

	// ErrorHandler receives load and save failures. Defaults to log.Printf.
	ErrorHandler ErrorHandler

	// InfoHandler receives informational messages. Defaults to log.Printf.
	InfoHandler InfoHandler

	// Header is written as a comment block at the top of saved files.
	Header string
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c *Config) WithDefaults() *Config {
	config := *c

	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if config.Style == nil {
		config.Style = FlexibleStyle()
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = func(err error, path string) {
			log.Printf("tessera: %s: %v", path, err)
		}
	}
	if config.InfoHandler == nil {
		config.InfoHandler = func(msg, path string) {
			log.Printf("tessera: %s: %s", path, msg)
		}
	}
	if config.Audit.Enabled {
		defaults := DefaultAuditConfig()
		if config.Audit.BufferSize == 0 {
			config.Audit.BufferSize = defaults.BufferSize
		}
		if config.Audit.FlushInterval == 0 {
			config.Audit.FlushInterval = defaults.FlushInterval
		}
		if config.Audit.Component == "" {
			config.Audit.Component = defaults.Component
		}
	}

	return &config
}
