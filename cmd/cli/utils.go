// Utility functions for the tessera CLI
//
// Format resolution, file loading and saving through RootNode, templates
// and duration parsing.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/tessera"
)

// resolveFormat returns the format named explicitFormat, or the format
// detected from the extension of filePath for "" and "auto".
func resolveFormat(filePath, explicitFormat string) (tessera.Format, error) {
	if explicitFormat == "" || explicitFormat == "auto" {
		return tessera.DetectFormat(filePath), nil
	}
	format, ok := tessera.LookupFormat(strings.ToLower(explicitFormat))
	if !ok {
		return nil, errors.New(tessera.ErrCodeInvalidConfig, fmt.Sprintf("unknown format '%s'", explicitFormat))
	}
	return format, nil
}

// warn prints a non-fatal load or save problem.
func (m *Manager) warn(err error, path string) {
	fmt.Fprintf(m.errOut, "warning: %s: %v\n", path, err)
}

// note prints an informational message about a file.
func (m *Manager) note(msg, path string) {
	fmt.Fprintf(m.errOut, "note: %s: %s\n", path, msg)
}

// newRoot creates a RootNode for filePath with the manager settings.
func (m *Manager) newRoot(filePath string, format tessera.Format) *tessera.RootNode {
	return tessera.NewRootNode(tessera.Config{
		File:         filePath,
		Fs:           m.fs,
		Style:        m.style,
		Format:       format,
		AuditLogger:  m.auditLogger,
		ErrorHandler: m.warn,
		InfoHandler:  m.note,
	})
}

// loadRoot loads filePath. With allowMissing a missing file yields an
// empty tree; otherwise it is an error.
func (m *Manager) loadRoot(ctx context.Context, filePath, formatName string, allowMissing bool) (*tessera.RootNode, error) {
	if filePath == "" {
		return nil, errors.New(tessera.ErrCodeNoFile, "configuration file argument is required")
	}
	format, err := resolveFormat(filePath, formatName)
	if err != nil {
		return nil, err
	}

	root := m.newRoot(filePath, format)
	outcome, err := root.Load(ctx)
	if err != nil {
		return nil, err
	}
	switch outcome {
	case tessera.OutcomeLoaded:
		return root, nil
	case tessera.OutcomeMissing:
		if allowMissing {
			return root, nil
		}
		return nil, errors.New(tessera.ErrCodeFileNotFound,
			fmt.Sprintf("configuration file does not exist: %s", filePath))
	case tessera.OutcomeInterrupted:
		return nil, errors.New(tessera.ErrCodeInterrupted, "load interrupted")
	default:
		return nil, errors.New(tessera.ErrCodeIOError,
			fmt.Sprintf("failed to load %s", filePath))
	}
}

// saveRoot saves root to its bound file.
func saveRoot(ctx context.Context, root *tessera.RootNode) error {
	outcome, err := root.Save(ctx)
	if err != nil {
		return err
	}
	switch outcome {
	case tessera.OutcomeSaved:
		return nil
	case tessera.OutcomeInterrupted:
		return errors.New(tessera.ErrCodeInterrupted, "save interrupted")
	default:
		return errors.New(tessera.ErrCodeIOError,
			fmt.Sprintf("failed to write %s", root.File()))
	}
}

// displayPath joins a section and a key for output. Root keys print bare.
func displayPath(section, key string) string {
	section = strings.Trim(section, tessera.PathSeparator)
	if section == "" {
		return key
	}
	return section + tessera.PathSeparator + key
}

// sortedSections returns the keys of a flattened tree in order, root first.
func sortedSections(flat map[string]map[string]string) []string {
	sections := make([]string, 0, len(flat))
	for name := range flat {
		sections = append(sections, name)
	}
	sort.Slice(sections, func(i, j int) bool {
		if sections[i] == tessera.PathSeparator || sections[j] == tessera.PathSeparator {
			return sections[i] == tessera.PathSeparator && sections[j] != tessera.PathSeparator
		}
		return sections[i] < sections[j]
	})
	return sections
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// copyTree copies every section and value of src into dst.
func copyTree(dst, src *tessera.Node) {
	for section, values := range src.Flatten() {
		target := dst.Node(section)
		for k, v := range values {
			target.Put(k, v)
		}
	}
}

// fillTemplate writes the template called templateType into n.
func fillTemplate(n *tessera.Node, templateType, fileName string) error {
	name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	switch templateType {
	case "default":
		app := n.Node("app")
		app.Put("name", name)
		app.Put("version", "1.0.0")
		n.Node("log").Put("level", "info")
		n.Node("log").Put("output", "stdout")
	case "server":
		server := n.Node("server")
		server.Put("host", "0.0.0.0")
		server.PutInt("port", 8080)
		server.PutDuration("read_timeout", 30*time.Second)
		server.PutDuration("write_timeout", 30*time.Second)
		tls := n.Node("server/tls")
		tls.PutBool("enabled", false)
		tls.Put("cert_file", "")
		tls.Put("key_file", "")
		n.Node("log").Put("level", "info")
	case "minimal":
		n.Node("app").Put("name", name)
	default:
		return errors.New(tessera.ErrCodeInvalidConfig, fmt.Sprintf("unknown template '%s'", templateType))
	}
	return nil
}

// parseExtendedDuration parses durations with support for days and weeks.
// Extends Go's standard time.ParseDuration to support 'd' (days) and 'w' (weeks).
func parseExtendedDuration(s string) (time.Duration, error) {
	re := regexp.MustCompile(`^(\d+)([dw])$`)
	if matches := re.FindStringSubmatch(s); matches != nil {
		value, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, err
		}
		switch matches[2] {
		case "d":
			return time.Duration(value) * 24 * time.Hour, nil
		case "w":
			return time.Duration(value) * 7 * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
