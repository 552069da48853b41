// tessera: command-line interface for INI configuration files
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/agilira/tessera/cmd/cli"
	"github.com/spf13/afero"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	settings, args, err := cli.LoadSettings(afero.NewOsFs(), cli.SettingsPath(), args)
	if err != nil {
		return err
	}
	style, err := settings.Style()
	if err != nil {
		return err
	}

	manager := cli.NewManager().WithStyle(style)

	auditLogger, err := settings.AuditLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit journal disabled: %v\n", err)
	}
	if auditLogger != nil {
		defer auditLogger.Close()
		manager.WithAudit(auditLogger)
	}

	return manager.Run(args)
}
